package mqtt

// Fixed topics used by the bridge.
const (
	// TopicHeatingState carries one snapshot of every thermostat per poll cycle.
	TopicHeatingState = "heating/state"

	// TopicBridgeStatus carries the retained online/offline status and the LWT.
	TopicBridgeStatus = "heating/bridge/status"
)

// Topics provides builders for the bridge's MQTT topics.
type Topics struct{}

// State returns the snapshot topic.
func (Topics) State() string {
	return TopicHeatingState
}

// BridgeStatus returns the bridge status topic.
//
// Example payload: {"status":"online","client_id":"Heatmiser","timestamp":"..."}
func (Topics) BridgeStatus() string {
	return TopicBridgeStatus
}
