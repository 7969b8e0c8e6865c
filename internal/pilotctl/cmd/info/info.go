package info

import (
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"
	hoststat "github.com/likexian/host-stat-go"
	"github.com/spf13/cobra"

	"github.com/kiosk404/screenpilot/pkg/utils/iputil"
)

var infoExample = heredoc.Doc(`
		# Print the host information
		pilotctl info`)

// Info is an options struct to support 'info' sub command.
type Info struct {
	HostName  string
	IPAddress string
	OSRelease string
	CPUCore   uint64
	MemTotal  string
	MemFree   string
}

// NewCmdInfo returns new initialized instance of 'info' sub command.
func NewCmdInfo(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "info",
		DisableFlagsInUseLine: true,
		Short:                 "Print the host information",
		Long:                  "Print the host information.",
		Example:               infoExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(out)
		},
	}

	return cmd
}

func run(out io.Writer) error {
	var info Info

	hostInfo, err := hoststat.GetHostInfo()
	if err != nil {
		return fmt.Errorf("get host info failed!error:%w", err)
	}

	info.HostName = hostInfo.HostName
	info.OSRelease = hostInfo.Release + " " + hostInfo.OSBit

	memStat, err := hoststat.GetMemStat()
	if err != nil {
		return fmt.Errorf("get mem stat failed!error:%w", err)
	}

	info.MemTotal = strconv.FormatUint(memStat.MemTotal, 10) + "M"
	info.MemFree = strconv.FormatUint(memStat.MemFree, 10) + "M"
	info.IPAddress = iputil.GetLocalIP()

	cpuStat, err := hoststat.GetCPUInfo()
	if err != nil {
		return fmt.Errorf("get cpu stat failed!error:%w", err)
	}

	info.CPUCore = cpuStat.CoreCount

	s := reflect.ValueOf(&info).Elem()
	typeOfInfo := s.Type()

	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)

		v := fmt.Sprintf("%v", f.Interface())
		if v != "" {
			fmt.Fprintf(out, "%12s %v\n", typeOfInfo.Field(i).Name+":", f.Interface())
		}
	}

	return nil
}
