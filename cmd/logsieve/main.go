package main

import (
	"logsieve/internal/cmd"
)

func main() {
	cmd.Execute()
}
