package flags

// This file contains all the flags used in the cmd package.

type Flag struct {
	Full  string
	Short string
}

var (
	// Parent flags
	ConfigFlag = Flag{Full: "config", Short: "c"}

	// Launch specification
	NameFlag          = Flag{Full: "name", Short: "n"}
	AMIFlag           = Flag{Full: "ami"}
	InstanceTypeFlag  = Flag{Full: "type", Short: "t"}
	SecurityGroupFlag = Flag{Full: "security-group"}
	KeyNameFlag       = Flag{Full: "key-name"}
	AZFlag            = Flag{Full: "az"}
	ValidForFlag      = Flag{Full: "valid-for"}
	UserDataFlag      = Flag{Full: "user-data"}

	WaitSSHFlag  = Flag{Full: "wait-ssh"}
	ScheduleFlag = Flag{Full: "schedule"}
	AllFlag      = Flag{Full: "all", Short: "a"}
)
