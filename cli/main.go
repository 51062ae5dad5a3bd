package main

import (
	"os"

	"stormlightlabs.org/rankcore/internal/echo"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		echo.Error(err.Error())
		os.Exit(1)
	}
}
