package main

import "github.com/Manu343726/vmlens/cmd"

func main() {
	cmd.Execute()
}
