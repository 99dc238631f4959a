// Package mqtt provides the bridge's MQTT publisher.
//
// This package manages:
//   - Connection to the broker with auto-reconnect after the first session
//   - Publishing with QoS validation and a bounded wait for acknowledgement
//   - An explicit connection State, queryable or followed via StateChanges
//   - Last Will and Testament plus retained online/offline status
//
// # Topics
//
//	heating/state          one JSON snapshot per poll cycle
//	heating/bridge/status  {"status":"online"|"offline",...}, retained
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	go func() {
//	    for s := range client.StateChanges() {
//	        logger.Info("mqtt state", "state", s)
//	    }
//	}()
//
//	err = client.PublishDefault(mqtt.TopicHeatingState, payload)
//
// Broker-backed tests are behind the integration build tag.
package mqtt
