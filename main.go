// SPDX-License-Identifier: MPL-2.0

package main

import cmd "modboot/cmd/modboot"

func main() {
	cmd.Execute()
}
