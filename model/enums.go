package model

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type Currency string

const (
	Arbitrary Currency = "ARBITRARY"
	BTC       Currency = "BTC"
	EUR       Currency = "EUR"
	USD       Currency = "USD"
)

var currencies = []Currency{Arbitrary, BTC, EUR, USD}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(currencies, c) {
		return "", errors.Errorf("unsupported currency %q", s)
	}

	return c, nil
}

func (c *Currency) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrency(string(text))
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}

type TimeUnit string

const (
	Seconds TimeUnit = "SECONDS"
	Minutes TimeUnit = "MINUTES"
	Hours   TimeUnit = "HOURS"
)

// Duration is a length of time in an explicit unit.
type Duration struct {
	Duration float64  `json:"duration"`
	Unit     TimeUnit `json:"unit"`
}

func (d Duration) Seconds() (float64, error) {
	switch d.Unit {
	case Seconds, "":
		return d.Duration, nil
	case Minutes:
		return d.Duration * 60, nil
	case Hours:
		return d.Duration * 3600, nil
	default:
		return 0, errors.Errorf("unsupported time unit %q", d.Unit)
	}
}

type ChecksumType string

const (
	MD5    ChecksumType = "md5"
	ETag   ChecksumType = "etag"
	SHA256 ChecksumType = "sha256"
	SHA512 ChecksumType = "sha512"
)

var checksumTypes = []ChecksumType{MD5, ETag, SHA256, SHA512}

func (c *ChecksumType) UnmarshalText(text []byte) error {
	t := ChecksumType(strings.ToLower(string(text)))
	if !slices.Contains(checksumTypes, t) {
		return errors.Errorf("unsupported checksum type %q", string(text))
	}

	*c = t
	return nil
}

type AccessMethodType string

const (
	S3     AccessMethodType = "s3"
	GS     AccessMethodType = "gs"
	FTP    AccessMethodType = "ftp"
	GSIFTP AccessMethodType = "gsiftp"
	Globus AccessMethodType = "globus"
	HTSGet AccessMethodType = "htsget"
	HTTPS  AccessMethodType = "https"
	File   AccessMethodType = "file"
)

var accessMethodTypes = []AccessMethodType{S3, GS, FTP, GSIFTP, Globus, HTSGet, HTTPS, File}

func (a *AccessMethodType) UnmarshalText(text []byte) error {
	t := AccessMethodType(strings.ToLower(string(text)))
	if !slices.Contains(accessMethodTypes, t) {
		return errors.Errorf("unsupported access method type %q", string(text))
	}

	*a = t
	return nil
}
