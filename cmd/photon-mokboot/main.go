/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import "github.com/vmware/photon-mokboot/cmd"

func main() {
	cmd.Execute()
}
