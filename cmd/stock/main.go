package main

import (
	"os"

	"github.com/ThisIsLeoZhao/stock/cmd/stock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
