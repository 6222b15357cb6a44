package main

import "github.com/wentf9/xops-deploy/cmd"

func main() {
	cmd.Execute()
}
