package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu    sync.Mutex
	dumps map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dumps[id] = contents
}

func TestDumpExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "test")
		w.Write([]byte("<html>archive</html>"))
	}))
	defer server.Close()

	output := &memoryOutput{dumps: map[string]string{}}
	client := resty.New()
	DumpExchanges(client, output)

	_, err := client.R().SetHeader("User-Agent", "moexscrape-test").Get(server.URL + "/ru/index/IMOEX/archive")
	require.NoError(t, err)
	_, err = client.R().Get(server.URL + "/ru/index/RTSI/archive")
	require.NoError(t, err)

	require.Len(t, output.dumps, 2)
	dump, ok := output.dumps["001/ru/index/IMOEX/archive"]
	require.True(t, ok)
	require.Contains(t, dump, "GET "+server.URL+"/ru/index/IMOEX/archive")
	require.Contains(t, dump, "User-Agent: moexscrape-test")
	require.Contains(t, dump, "---- RESPONSE ----\n\n200 ")
	require.Contains(t, dump, "X-Served-By: test")
	require.Contains(t, dump, "<html>archive</html>")
	require.Contains(t, output.dumps, "002/ru/index/RTSI/archive")
}

func TestDumpExchangesNilOutput(t *testing.T) {
	client := resty.New()
	DumpExchanges(client, nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moexscrape.json5"), []byte("{}"), 0644))

	first, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	second, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	require.NotEqual(t, first.Dir(), second.Dir())
	require.Equal(t, dir, filepath.Dir(first.Dir()))

	// existing files next to the dumps are kept
	data, err := os.ReadFile(filepath.Join(dir, "moexscrape.json5"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))

	first.Write("001/ru/index/IMOEX/archive", "contents")
	data, err = os.ReadFile(filepath.Join(first.Dir(), "001_ru_index_IMOEX_archive"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(data))
}

func TestFilesystemOutputCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dumps")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	info, err := os.Stat(output.Dir())
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
