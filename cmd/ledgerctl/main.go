package main

import "uniledger/cmd/ledgerctl/cmd"

func main() {
	cmd.Execute()
}
