package main

import "github.com/talyaglobal/tsmartcleaning2-sub003/cmd"

func main() {
	cmd.Execute()
}
