// wifi-transfer sends a single file to another machine on the same local network
package main

import "wifitransfer/cmd"

func main() {
	cmd.Execute()
}
