package main

import (
	"github.com/zerosync-co/opencode-provider/cmd"
	"github.com/zerosync-co/opencode-provider/internal/logging"
)

func main() {
	defer logging.RecoverPanic("main", nil)

	cmd.Execute()
}
