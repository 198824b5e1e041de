package utils

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/logger"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
}

func Dump(a ...interface{}) {
	fmt.Println(spewConfig.Sdump(a...))
}

func Fdump(w io.Writer, a ...interface{}) {
	spewConfig.Fdump(w, a...)
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

func LogDump(msg string, a ...interface{}) {
	logger.Debug(msg, zap.String("dump", spewConfig.Sdump(a...)))
}
