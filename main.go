package main

import "github.com/commercegate/ms-go-dibs/cmd"

func main() {
	cmd.Execute()
}
