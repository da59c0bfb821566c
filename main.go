package main

import "github.com/ValentinKolb/sVS/cmd"

func main() {
	cmd.Execute()
}
