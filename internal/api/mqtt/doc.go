// Package mqtt publishes controller events to an MQTT broker.
//
// Topics, below the configured prefix:
//
//	<prefix>/state          retained "controlled", "uncontrolled" or "offline" (last will)
//	<prefix>/gpu/<index>    one JSON document per fan speed change
package mqtt
