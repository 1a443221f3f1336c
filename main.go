package main

import (
	"github.com/TaikerLiang/shipment-crawler/cmd"
)

func main() {
	cmd.Execute()
}
