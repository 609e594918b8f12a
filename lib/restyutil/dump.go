package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives a formatted request/response pair.
type Output interface {
	Write(id string, contents string)
}

// DumpExchanges writes every completed exchange of client to output, the id
// is a sequence number followed by the request path. a nil output is a no-op.
func DumpExchanges(client *resty.Client, output Output) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := atomic.AddUint64(&counter, 1)
		path := ""
		if res.RawResponse != nil && res.RawResponse.Request != nil {
			path = res.RawResponse.Request.URL.Path
		}
		output.Write(fmt.Sprintf("%03d%s", n, path), formatExchange(res))
		return nil
	})
}
