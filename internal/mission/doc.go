// Package mission turns host-supplied waypoint mission parameters into a
// validated vendor mission.
//
// Parameters arrive as a loosely typed map (JSON from the host runtime or a
// YAML mission file). Parse decodes them, Check applies the waypoint mission
// rules, and Build produces the immutable dji.WaypointMission handed to
// the mission operator.
package mission
