package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/searchktools/dory/core/transport"
)

func probeCmd() *cobra.Command {
	var (
		host   string
		port   int
		method string
		body   string
		empty  bool
	)

	cmd := &cobra.Command{
		Use:   "probe [slug]",
		Short: "Send one raw request and print the reply",
		Long: `Send a single request to a running server over a raw socket and print
the response verbatim. With --empty nothing is sent, which a server answers
with 100 Continue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := "/"
			if len(args) == 1 {
				slug = args[0]
			}

			reply, err := probe(host, port, requestLine(method, slug, body, empty))
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(reply)
			return err
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "server port")
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method (GET or POST)")
	cmd.Flags().StringVarP(&body, "data", "d", "", "request body")
	cmd.Flags().BoolVar(&empty, "empty", false, "connect without sending anything")

	return cmd
}

func requestLine(method, slug, body string, empty bool) []byte {
	if empty {
		return nil
	}
	req := fmt.Sprintf("%s %s HTTP/1.1\r\n", method, slug)
	if body != "" {
		req += fmt.Sprintf("Content-Length: %d\r\n", len(body))
	}
	return []byte(req + "\r\n" + body)
}

func probe(host string, port int, req []byte) ([]byte, error) {
	conn, err := transport.Dial(host, port)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if len(req) > 0 {
		if _, err := conn.Write(req); err != nil {
			return nil, err
		}
		if err := conn.Flush(); err != nil {
			return nil, err
		}
	}

	var reply []byte
	for {
		chunk, err := conn.Read()
		if err != nil {
			return reply, err
		}
		if len(chunk) == 0 {
			return reply, nil
		}
		reply = append(reply, chunk...)
	}
}
