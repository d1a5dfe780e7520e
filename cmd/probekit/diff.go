package main

import storecmd "github.com/probekit/probekit/cmd/probekit/store"

var diffCmd = storecmd.NewDiffCmd()
