package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/lotterytest/cmd/lotterytest/cmd"
	"github.com/armadaproject/lotterytest/internal/common"
	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/logging"
)

// Config is handled by cmd/root.go
func main() {
	common.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		log.Error(err)
		log.Debugf("%+v", logging.TopmostWithCause(err))
	}
	os.Exit(harnesserrors.ExitCodeFromError(err))
}
