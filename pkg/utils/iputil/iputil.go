package iputil

import "net"

// GetLocalIP returns the preferred outbound IP of this host, or an
// empty string when no route is available.
func GetLocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}

	return localAddr.IP.String()
}
