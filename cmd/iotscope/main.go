/**
 * IoTScope Main Application Entry Point.
 *
 * Passive IoT device fingerprinting: mines periodic conversations out
 * of per-device captures, distils them into key-packet signatures, and
 * matches fresh captures against the signature bank.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package main

import (
	"os"

	"github.com/kleaSCM/iotscope/cmd/iotscope/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
