package acmeclient

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/dmitrymomot/autocert/core/autocert"
)

// Client issues certificates through an ACME provider using lego. It satisfies
// the autocert.Issuer capability. The account key is generated once and the
// registration is performed lazily on the first issuance, then reused.
type Client struct {
	cfg             config
	clientFactory   clientFactory
	accountKeyMaker func() (crypto.PrivateKey, error)
	clock           func() time.Time

	// mu serializes account setup; issuances for distinct hostnames already
	// run one at a time per name under the coordinator.
	mu   sync.Mutex
	acme acmeClient
	user *accountUser
}

type config struct {
	directoryURL       string
	contact            string
	eabKid             string
	eabHMACKey         string
	certificateKeyType certcrypto.KeyType
	bundle             bool
	http01Address      string
	http01Host         string
	http01Port         string
	proxyHeader        string
}

const defaultHTTPPort = "80"

// New constructs a Client for the given ACME directory and account contact.
func New(directoryURL, contact string, opts ...Option) (*Client, error) {
	cfg := config{
		directoryURL:       strings.TrimSpace(directoryURL),
		contact:            strings.TrimSpace(contact),
		certificateKeyType: certcrypto.RSA2048,
		bundle:             true,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return &Client{
		cfg:           cfg,
		clientFactory: defaultClientFactory,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
		clock: time.Now,
	}, nil
}

// Issue performs a full ACME exchange for hostname and returns the issued
// record. It blocks for the duration of the exchange.
func (c *Client) Issue(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := c.ensureAccount(ctx)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	certRes, err := client.Obtain(certificate.ObtainRequest{
		Domains: []string{hostname},
		Bundle:  c.cfg.bundle,
	})
	if err != nil {
		return nil, fmt.Errorf("obtain certificate for %s: %w", hostname, err)
	}

	if len(certRes.Certificate) == 0 {
		return nil, errors.New("empty certificate payload received from ACME server")
	}
	if len(certRes.PrivateKey) == 0 {
		return nil, errors.New("empty private key received from ACME server")
	}

	rec, err := autocert.NewCertificateRecord(hostname, certRes.Certificate, certRes.PrivateKey, c.clock().UTC())
	if err != nil {
		return nil, fmt.Errorf("issued certificate for %s: %w", hostname, err)
	}
	return rec, nil
}

// ensureAccount creates the lego client, challenge provider and account
// registration on first use and reuses them afterwards.
func (c *Client) ensureAccount(ctx context.Context) (acmeClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.acme != nil {
		return c.acme, nil
	}

	accountKey, err := c.accountKeyMaker()
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}

	user := &accountUser{
		email: c.cfg.contact,
		key:   accountKey,
	}

	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = c.cfg.directoryURL
	legoCfg.Certificate.KeyType = c.cfg.certificateKeyType

	client, err := c.clientFactory(legoCfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}

	provider := http01.NewProviderServer(c.cfg.http01Host, c.cfg.http01Port)
	if c.cfg.proxyHeader != "" {
		provider.SetProxyHeader(c.cfg.proxyHeader)
	}
	if err := client.SetHTTP01Provider(provider); err != nil {
		return nil, fmt.Errorf("configure http-01 provider: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reg *registration.Resource
	if c.cfg.eabKid != "" {
		reg, err = client.RegisterWithEAB(registration.RegisterEABOptions{
			TermsOfServiceAgreed: true,
			Kid:                  c.cfg.eabKid,
			HmacEncoded:          c.cfg.eabHMACKey,
		})
	} else {
		reg, err = client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	}
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	user.registration = reg

	c.user = user
	c.acme = client
	return client, nil
}

func (cfg *config) applyDefaults() error {
	if cfg.directoryURL == "" {
		return errors.New("acme directory url is required")
	}
	if cfg.contact == "" {
		return errors.New("account contact email is required")
	}
	if cfg.eabKid != "" && cfg.eabHMACKey == "" {
		return errors.New("eab hmac key is required when a key id is set")
	}

	host, port, err := parseHTTPAddress(cfg.http01Address)
	if err != nil {
		return err
	}
	if port == "" {
		port = defaultHTTPPort
	}
	cfg.http01Host = host
	cfg.http01Port = port

	if cfg.certificateKeyType == "" {
		cfg.certificateKeyType = certcrypto.RSA2048
	}
	return nil
}

func parseHTTPAddress(addr string) (string, string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", "", nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", "", fmt.Errorf("invalid http-01 address %q: %w", addr, err)
	}
	return host, port, nil
}

type clientFactory func(*lego.Config) (acmeClient, error)

type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	RegisterWithEAB(options registration.RegisterEABOptions) (*registration.Resource, error)
	SetHTTP01Provider(provider challenge.Provider) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

func defaultClientFactory(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) RegisterWithEAB(options registration.RegisterEABOptions) (*registration.Resource, error) {
	return l.client.Registration.RegisterWithExternalAccountBinding(options)
}

func (l *legoClientAdapter) SetHTTP01Provider(provider challenge.Provider) error {
	return l.client.Challenge.SetHTTP01Provider(provider)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string {
	return u.email
}

func (u *accountUser) GetRegistration() *registration.Resource {
	return u.registration
}

func (u *accountUser) GetPrivateKey() crypto.PrivateKey {
	return u.key
}
