/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ledgerlift/erp-migrator/cmd"

func main() {
	cmd.Execute()
}
