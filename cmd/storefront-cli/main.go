// cmd/storefront-cli/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"huerta/internal/pkg/httpclient"
	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/nacos"
	"huerta/internal/storefront/api"
	"huerta/internal/storefront/checkout"
	"huerta/internal/storefront/localstore"
)

const (
	serviceName = "storefront-cli"
	backendName = "storefront-api"
)

const usage = `uso: storefront-cli [flags] <comando> [args]

comandos:
  products                   lista los productos
  categories                 lista las categorías
  cart                       muestra el carrito
  add <productId> [qty]      agrega al carrito (--variant para la variedad)
  set <productId> <qty>      cambia la cantidad, 0 la quita
  remove <productId>         quita un producto
  clear                      vacía el carrito
  apply <code>               aplica un código de descuento
  unapply                    quita el código aplicado
  checkout                   envía el pedido (--name obligatorio)

flags:
`

type options struct {
	server    string
	nacosAddr string
	namespace string
	statePath string
	timeout   time.Duration
	logLevel  string

	variant string
	name    string
	phone   string
	notes   string
	address string
}

func main() {
	var opts options
	home, _ := os.UserHomeDir()
	pflag.StringVar(&opts.server, "server", envOr("HUERTA_API_URL", "http://localhost:8080"), "storefront-api base URL")
	pflag.StringVar(&opts.nacosAddr, "nacos", os.Getenv("HUERTA_NACOS_ADDRS"), "discover storefront-api through nacos instead of --server")
	pflag.StringVar(&opts.namespace, "nacos-namespace", os.Getenv("HUERTA_NACOS_NAMESPACE"), "nacos namespace")
	pflag.StringVar(&opts.statePath, "state", filepath.Join(home, ".huerta", "state.json"), "local state file")
	pflag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	pflag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	pflag.StringVar(&opts.variant, "variant", "", "product variant for add/set/remove")
	pflag.StringVar(&opts.name, "name", "", "customer name for checkout")
	pflag.StringVar(&opts.phone, "phone", "", "customer phone for checkout")
	pflag.StringVar(&opts.notes, "notes", "", "order notes for checkout")
	pflag.StringVar(&opts.address, "address", "", "shipping address for checkout")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	logger.Init(serviceName, opts.logLevel, true)
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &opts, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, checkout.UserMessage(err))
		logger.L().Debug().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, args []string) error {
	resolver, err := newResolver(opts)
	if err != nil {
		return err
	}
	store, err := localstore.Open(opts.statePath)
	if err != nil {
		return err
	}
	client := api.NewClient(httpclient.NewClient(otel.Tracer(serviceName), resolver, backendName, opts.timeout))
	cli := &cli{
		out:     os.Stdout,
		opts:    opts,
		client:  client,
		session: checkout.NewSession(store, client),
	}
	return cli.dispatch(ctx, args)
}

func newResolver(opts *options) (httpclient.Resolver, error) {
	if opts.nacosAddr == "" {
		return httpclient.StaticResolver(opts.server), nil
	}
	c, err := nacos.NewNacosClient(opts.nacosAddr, opts.namespace, "DEFAULT_GROUP")
	if err != nil {
		return nil, err
	}
	return c, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
