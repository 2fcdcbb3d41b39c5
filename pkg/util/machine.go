package util

import (
	"sync"

	"github.com/denisbrodbeck/machineid"
)

var (
	machineID     string
	machineIDOnce sync.Once
)

// GetMachineID returns an app-scoped identifier of the current machine.
// The value salts token signing keys so tokens minted on another host do not verify here.
// GetMachineID 获取当前机器的标识，获取失败时返回空字符串
func GetMachineID() string {
	machineIDOnce.Do(func() {
		id, err := machineid.ProtectedID("page-notes-service")
		if err == nil {
			machineID = id
		}
	})
	return machineID
}
