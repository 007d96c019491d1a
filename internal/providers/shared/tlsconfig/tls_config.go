package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/faults"
)

// Build turns the optional TLS settings into a client tls.Config. A nil
// settings block yields a nil config so the transport keeps its defaults.
func Build(settings *config.TLS) (*tls.Config, error) {
	if settings == nil {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: settings.InsecureSkipVerify,
	}

	if caFile := strings.TrimSpace(settings.CACertFile); caFile != "" {
		pool, err := loadCertPool(caFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	certFile := strings.TrimSpace(settings.ClientCertFile)
	keyFile := strings.TrimSpace(settings.ClientKeyFile)
	if (certFile == "") != (keyFile == "") {
		return nil, validationError("tls requires both client-cert-file and client-key-file", nil)
	}
	if certFile != "" {
		certificate, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, validationError("tls client certificate pair is invalid", err)
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	}

	return tlsConfig, nil
}

// Describe renders the settings for debug output without secrets.
func Describe(settings *config.TLS) string {
	if settings == nil {
		return "tls=default"
	}
	return fmt.Sprintf(
		"tls_insecure_skip_verify=%t tls_ca_cert_file=%q mtls_enabled=%t",
		settings.InsecureSkipVerify,
		strings.TrimSpace(settings.CACertFile),
		strings.TrimSpace(settings.ClientCertFile) != "" && strings.TrimSpace(settings.ClientKeyFile) != "",
	)
}

func loadCertPool(path string) (*x509.CertPool, error) {
	caBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, validationError("tls ca-cert-file could not be read", err)
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caBytes); !ok {
		return nil, validationError("tls ca-cert-file is not valid PEM", nil)
	}
	return pool, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
