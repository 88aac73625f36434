/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/minewatch/cmd/minewatch/cmd"
)

func main() {
	cmd.Execute()
}
