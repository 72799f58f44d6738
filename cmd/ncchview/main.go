package main

import (
	"github.com/connesc/ncchview/internal/cmd"
)

func main() {
	cmd.Execute()
}
