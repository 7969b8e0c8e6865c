package cmd

import (
	"github.com/spf13/pflag"
)

var (
	globalDashboardAddr string
)

func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&globalDashboardAddr,
		"dashboard-addr",
		"127.0.0.1:8240",
		"Address of the screenpilot dashboard server (host:port)")
}

func GetDashboardAddr() string {
	return globalDashboardAddr
}
