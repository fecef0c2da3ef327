package cmd

import (
	"fmt"
)

const banner = `
   _____          _   _
  / ____|        | | (_)
 | |     ___ _ __| |_ ___   _____
 | |    / _ \ '__| __| \ \ / / _ \
 | |____  __/ |  | |_| |\ V / (_) |
  \_____\___|_|   \__|_| \_/ \___/

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Challenge Session Engine - Version %s\x1b[0m\n\n", Version)
}
