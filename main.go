// main is the entry point of the cistat CLI.
package main

import (
	"github.com/huangsam/cistat/cmd"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("Cannot run cistat", err)
	}
}
