package main

import "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/cmd"

func main() {
	cmd.Execute()
}
