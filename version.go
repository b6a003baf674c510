package mathagent

var Version = "0.0.1"
