// Package main is the entry point for the spamprint client.
package main

import (
	"firestige.xyz/spamprint/cmd"
)

func main() {
	cmd.Execute()
}
