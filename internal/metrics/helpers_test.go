package metrics

import (
	"fmt"
	"net"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testutilValue(c prometheus.Collector) float64 {
	return testutil.ToFloat64(c)
}

func splitPort(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	return host, port, err
}

func localURL(t *testing.T, addr, path string) string {
	t.Helper()
	_, port, err := splitPort(addr)
	if err != nil {
		t.Fatalf("bad addr %q: %v", addr, err)
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, path)
}
