// Package main generates a development Certificate Authority (CA) and a server
// certificate for the reference store, writing them under the "certs" directory.
//
//	go run ./tools/certgen -hosts localhost,127.0.0.1
//	journalon-server -tls-cert certs/server.crt -tls-key certs/server.key
//	journalon --url https://localhost:8080 --ca certs/ca.crt list
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/journalon/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server names and addresses")
	flag.Parse()

	reused, err := run(*dir, splitHosts(*hosts))
	if err != nil {
		log.Fatal(err)
	}
	if reused {
		fmt.Printf("Reused CA in %s\n", *dir)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// run writes ca.crt/ca.key and server.crt/server.key into dir. An existing CA
// is reused so that clients keep trusting it; reused reports that case.
func run(dir string, hosts []string) (reused bool, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", dir, err)
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	switch {
	case err == nil:
		reused = true
	case errors.Is(err, fs.ErrNotExist):
		certPEM, keyPEM, err := certgen.GenerateCA("journalon dev CA")
		if err != nil {
			return false, err
		}
		if err := writeCertAndKey(caCertPath, caKeyPath, certPEM, keyPEM); err != nil {
			return false, err
		}
		if caCert, caKey, err = certgen.ParseCACredentials(certPEM, keyPEM); err != nil {
			return false, err
		}
	default:
		return false, err
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return reused, err
	}
	return reused, writeCertAndKey(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM)
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// writeCertAndKey writes PEM data to the given paths. Keys are readable by the
// owner only.
func writeCertAndKey(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}
