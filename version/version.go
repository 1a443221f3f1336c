package version

import (
	"fmt"
)

// 构建期通过-ldflags注入
var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "None"
)

// GetVersion 版本号附短commit hash
func GetVersion() string {
	if GitHash == "" {
		return Version
	}

	h := GitHash
	if len(h) > 7 {
		h = h[:7]
	}

	return fmt.Sprintf("%s-%s", Version, h)
}

// Printer print build version
func Printer() {
	fmt.Println("shipment-crawler")
	fmt.Println("Version:          ", GetVersion())
	fmt.Println("Git Branch:       ", GitBranch)
	fmt.Println("Git Commit:       ", GitHash)
	fmt.Println("Build Time (UTC): ", BuildTS)
}
