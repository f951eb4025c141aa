// Package state persists the takeover marker.
//
// While the controller holds manual fan control it keeps a small JSON file
// naming its PID and the number of devices it took over. A marker left behind
// by a crashed process tells the next start which devices to hand back.
package state
