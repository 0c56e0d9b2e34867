package main

import (
	"os"

	"github.com/kube-rca/sage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
