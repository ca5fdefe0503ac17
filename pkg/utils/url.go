package utils

import (
	"errors"
	"net/url"
)

// ParseHttpUrl parses a string of the form <scheme>://<host>:<port> for the
// debug HTTP listener. The port defaults to 8080 if omitted. Only "tcp" is
// supported.
func ParseHttpUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	if uri.Port() == "" {
		uri.Host += ":8080"
	}

	switch uri.Scheme {
	case "tcp":
		return uri.Host, nil
	default:
		return "", errors.New("unsupported protocol: " + uri.Scheme)
	}
}

// ParseGrpcUrl parses a string of the form <scheme>://<host>:<port> for the
// umbilical gRPC listener. The port defaults to 9090 if omitted. "tcp" and
// "unix" are supported; unix sockets carry their path in uri.Path.
func ParseGrpcUrl(urlstr string) (network, address string, err error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", "", err
	}

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
		host := uri.Host
		if uri.Port() == "" {
			host += ":9090"
		}
		return uri.Scheme, host, nil
	case "unix":
		return uri.Scheme, uri.Path, nil
	default:
		return "", "", errors.New("unsupported protocol: " + uri.Scheme)
	}
}
