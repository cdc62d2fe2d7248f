package fetcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "standard ftp url",
			url:      "ftp://ftp.example.com/pub/data/sites.csv",
			wantHost: "ftp.example.com:21",
			wantPath: "/pub/data/sites.csv",
		},
		{
			name:     "ftp url with port",
			url:      "ftp://ftp.example.com:2121/data/sites.csv",
			wantHost: "ftp.example.com:2121",
			wantPath: "/data/sites.csv",
		},
		{
			name:     "ftp url with nested path",
			url:      "ftp://gis.example.gov/exports/2024/q1/sites.zip",
			wantHost: "gis.example.gov:21",
			wantPath: "/exports/2024/q1/sites.zip",
		},
		{
			name:    "http scheme rejected",
			url:     "http://example.com/sites.csv",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp.example.com",
			wantErr: true,
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

// miniFTPServer speaks just enough FTP for the client to log in, enter
// passive mode, and retrieve a file.
type miniFTPServer struct {
	listener net.Listener
	files    map[string]string
	wg       sync.WaitGroup
}

func newMiniFTPServer(t *testing.T, files map[string]string) *miniFTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &miniFTPServer{listener: ln, files: files}
	s.wg.Add(1)
	go s.serve()
	return s
}

func (s *miniFTPServer) addr() string {
	return s.listener.Addr().String()
}

func (s *miniFTPServer) close() {
	s.listener.Close() //nolint:errcheck
	s.wg.Wait()
}

func (s *miniFTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *miniFTPServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close() //nolint:errcheck

	conn.SetDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck

	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)
	reply := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\r\n", args...) //nolint:errcheck
		w.Flush()                              //nolint:errcheck
	}

	reply("220 test ftp ready")

	var dataListener net.Listener
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

		switch strings.ToUpper(cmd) {
		case "USER", "PASS":
			reply("230 logged in")

		case "FEAT":
			reply("211-Features:\r\n UTF8\r\n211 End")

		case "TYPE", "OPTS":
			reply("200 ok")

		case "EPSV":
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				reply("425 cannot open data connection")
				continue
			}
			dataListener = ln
			reply("229 Entering Extended Passive Mode (|||%d|)", ln.Addr().(*net.TCPAddr).Port)

		case "PASV":
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				reply("425 cannot open data connection")
				continue
			}
			dataListener = ln
			addr := ln.Addr().(*net.TCPAddr)
			reply("227 Entering Passive Mode (127,0,0,1,%d,%d)", addr.Port/256, addr.Port%256)

		case "RETR":
			if dataListener == nil {
				reply("425 use PASV first")
				continue
			}
			content, ok := s.files[arg]
			if !ok {
				reply("550 file not found")
				dataListener.Close() //nolint:errcheck
				dataListener = nil
				continue
			}
			reply("150 opening data connection")
			dataConn, err := dataListener.Accept()
			if err != nil {
				reply("425 cannot open data connection")
				continue
			}
			io.WriteString(dataConn, content) //nolint:errcheck
			dataConn.Close()                  //nolint:errcheck
			dataListener.Close()              //nolint:errcheck
			dataListener = nil
			reply("226 transfer complete")

		case "QUIT":
			reply("221 goodbye")
			return

		default:
			reply("502 not implemented")
		}
	}
}

func TestDownloadFTP(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{
		"/data/sites.csv": "site_id,lat,lon,cluster_id\ns1,40,-75,c1\n",
	})
	defer srv.close()

	c := newTestClient()
	destDir := t.TempDir()

	ftpURL := fmt.Sprintf("ftp://%s/data/sites.csv", srv.addr())
	path, err := c.downloadFTP(context.Background(), ftpURL, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "sites.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "site_id,lat,lon,cluster_id\ns1,40,-75,c1\n", string(data))
}

func TestDownloadFTP_FileNotFound(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{
		"/existing.csv": "data",
	})
	defer srv.close()

	c := newTestClient()
	ftpURL := fmt.Sprintf("ftp://%s/nonexistent.csv", srv.addr())
	_, err := c.downloadFTP(context.Background(), ftpURL, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp retrieve")
}

func TestDownloadFTP_ConnectionRefused(t *testing.T) {
	c := NewClient(Options{Timeout: 2 * time.Second, RateLimit: 1000, Burst: 1000})

	_, err := c.downloadFTP(context.Background(), "ftp://127.0.0.1:19999/sites.csv", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp dial")
}

func TestDownloadFTP_DestDirBlocked(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{
		"/sites.csv": "content",
	})
	defer srv.close()

	// A regular file where the dest dir should go makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	c := newTestClient()
	ftpURL := fmt.Sprintf("ftp://%s/sites.csv", srv.addr())
	_, err := c.downloadFTP(context.Background(), ftpURL, blocker)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create dest dir")
}

func TestFTPConnReader_ReadAndClose(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{
		"/test.csv": "read close test",
	})
	defer srv.close()

	c := newTestClient()
	ftpURL := fmt.Sprintf("ftp://%s/test.csv", srv.addr())
	rc, err := c.openFTP(context.Background(), ftpURL)
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := rc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "read", string(buf))

	require.NoError(t, rc.Close())
}
