// Package main runs the smallest useful server on the dispatch engine: a
// single route answering GET /item/{} with a question about the item.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/Jon-Davis/http-tools/dispatch"
	"github.com/Jon-Davis/http-tools/request"
	"github.com/Jon-Davis/http-tools/response"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	mux := dispatch.NewMux()

	mux.HandleFunc("item",
		func(req *http.Request) request.Chain {
			return request.Filter(req).
				Method(http.MethodGet).
				Path("/item/{}")
		},
		func(req *http.Request) *http.Response {
			item, ok := request.Filter(req).Path("/item/{}").Var(1)
			if !ok {
				return response.FromStatus(http.StatusInternalServerError)
			}
			return response.New(http.StatusOK, "Got any "+item+"?")
		},
	)

	fmt.Printf("hello server listening on %s\n", *addr)

	if err := http.ListenAndServe(*addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
