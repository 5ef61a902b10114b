package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"zettel/internal/httpwire"
)

var (
	fetchMethod  string
	fetchHeaders []string
	fetchBody    bool
	fetchTimeout time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <addr> <path>",
	Short: "Send one raw request and print the response head",
	Long: `Open a TCP connection, send a single HTTP/1.1 request and print the status
line and headers the server answered with.

Examples:
  zettel fetch 127.0.0.1:7878 /notes/today
  zettel fetch 127.0.0.1:7878 / -H "Accept: application/json" --body
  zettel fetch 127.0.0.1:7878 /main.js --method HEAD`,
	Args: cobra.ExactArgs(2),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", "GET", "Request method")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaders, "header", "H", nil, `Extra header ("Name: value"), repeatable`)
	fetchCmd.Flags().BoolVar(&fetchBody, "body", false, "Print the response body too")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 10*time.Second, "Dial and I/O timeout")
}

func runFetch(cmd *cobra.Command, args []string) error {
	addr, target := args[0], args[1]
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	req := httpwire.NewRequest(strings.ToUpper(fetchMethod), target)
	req.Header.Set("Host", addr)
	req.Header.Set("User-Agent", "zettel-fetch")
	for _, h := range fetchHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := roundTrip(addr, req, fetchTimeout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d %s\n", resp.Version, resp.Status, httpwire.StatusText(resp.Status))
	for _, name := range resp.Header.Names() {
		fmt.Fprintf(out, "%s: %s\n", name, resp.Header.Get(name))
	}
	if fetchBody && len(resp.Body) > 0 {
		fmt.Fprintln(out)
		out.Write(resp.Body)
		if resp.Body[len(resp.Body)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}
	return nil
}

func roundTrip(addr string, req *httpwire.Request, timeout time.Duration) (*httpwire.Response, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if _, err := req.WriteTo(conn); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	br := bufio.NewReader(conn)
	if req.Method == "HEAD" {
		return httpwire.ReadResponseHead(br)
	}
	return httpwire.ReadResponse(br)
}
