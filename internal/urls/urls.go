package urls

// DuckietownDocs is the Duckietown documentation portal, including robot
// setup and networking guides.
const DuckietownDocs = "https://docs.duckietown.com/"

// RosbridgeSuite is the rosbridge server project the robots run.
const RosbridgeSuite = "https://github.com/RobotWebTools/rosbridge_suite"

// RosbridgeProtocol is the v2 JSON protocol spoken over the websocket.
const RosbridgeProtocol = "https://github.com/RobotWebTools/rosbridge_suite/blob/ros1/ROSBRIDGE_PROTOCOL.md"
