package main

import "sdwan-sites/cmd"

func main() {
	cmd.Execute()
}
