// Package influxdb mirrors thermostat readings into an InfluxDB v2 bucket.
//
// Points are queued on the batched write API of influxdb-client-go and
// flushed every influxdb.batch_size points or influxdb.flush_interval
// seconds, whichever comes first.
//
//	rec, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer rec.Close()
//	rec.OnWriteError(func(err error) { logger.Warn("influx write failed", "error", err) })
//
//	rec.RecordReading(reading, time.Now())
package influxdb
