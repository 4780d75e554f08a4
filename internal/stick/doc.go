// Package stick drives virtual-stick manual control.
//
// A run enables virtual-stick mode, streams one FlightControlData sample per
// tick and, when it ends, zeroes the sticks, leaves virtual-stick mode and
// publishes a VirtualStickStopped event naming why it ended.
package stick
