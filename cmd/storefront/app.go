package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"storefront-api/internal/catalogsync"
	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/favorites"
	"storefront-api/internal/localstore"
	"storefront-api/internal/models"
	"storefront-api/internal/notify"
	"storefront-api/internal/ordersync"
)

// session bundles the client-side components for one signed-in shopper
type session struct {
	userID  string
	api     *client.StorefrontClient
	manager *ordersync.Manager
	liked   *favorites.LikedProducts
}

func newApp(cfg *config.ClientConfig) *cli.App {
	return &cli.App{
		Name:  "storefront",
		Usage: "shop from the terminal and follow your orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Value: cfg.APIURL, Usage: "storefront API base URL"},
			&cli.StringFlag{Name: "data-dir", Value: cfg.DataDir, Usage: "where local orders and likes are kept, empty keeps them in memory"},
			&cli.StringFlag{Name: "user", EnvVars: []string{"STOREFRONT_USER"}, Usage: "signed-in user id"},
		},
		Commands: []*cli.Command{
			{
				Name:  "products",
				Usage: "list the catalog from the local mirror, syncing it first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "follow", Aliases: []string{"f"}, Usage: "keep the mirror current and print changes until interrupted"},
				},
				Action: browseCatalog(cfg),
			},
			{
				Name:   "watch",
				Usage:  "follow order status changes until interrupted",
				Action: withSession(cfg, watch),
			},
			{
				Name:   "orders",
				Usage:  "list locally tracked orders",
				Action: withSession(cfg, listOrders),
			},
			{
				Name:  "checkout",
				Usage: "order one product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true},
					&cli.StringFlag{Name: "size"},
					&cli.StringFlag{Name: "color"},
					&cli.StringFlag{Name: "first-name"},
					&cli.StringFlag{Name: "last-name"},
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: withSession(cfg, checkout),
			},
			{
				Name:      "cancel",
				Usage:     "cancel an order",
				ArgsUsage: "<orderId>",
				Action:    withSession(cfg, cancelOrder),
			},
			{
				Name:      "like",
				Usage:     "like or unlike a product",
				ArgsUsage: "<productId>",
				Action:    withSession(cfg, like),
			},
			{
				Name:   "likes",
				Usage:  "list liked products",
				Action: withSession(cfg, likes),
			},
		},
	}
}

func withSession(cfg *config.ClientConfig, action func(*cli.Context, *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		userID := c.String("user")
		if userID == "" {
			return cli.Exit("--user is required", 2)
		}

		store, err := openStore(c)
		if err != nil {
			return err
		}
		api := newClient(c, cfg)

		out := c.App.Writer
		queue := notify.NewQueue(notify.QueueConfig{
			MaxEntries: config.ParseInt("MAX_NOTIFICATIONS", cfg.MaxNotifications, notify.DefaultMaxEntries),
			TTL:        config.ParseDuration("NOTIFICATION_TTL", cfg.NotificationTTL, notify.DefaultTTL),
			OnPush: func(n notify.Notification) {
				fmt.Fprintf(out, "[%s] %s: %s\n", n.Type, n.ProductName, n.Message)
			},
		})

		s := &session{
			userID: userID,
			api:    api,
			manager: ordersync.NewManager(api, store, queue, ordersync.ManagerConfig{
				PollInterval: config.ParseDuration("POLL_INTERVAL", cfg.PollInterval, ordersync.DefaultPollInterval),
			}),
			liked: favorites.NewLikedProducts(api, store, slog.Default()),
		}
		if err := s.manager.SignIn(c.Context, userID); err != nil {
			return err
		}
		defer s.manager.Close()

		return action(c, s)
	}
}

func openStore(c *cli.Context) (localstore.Store, error) {
	dir := c.String("data-dir")
	if dir == "" {
		return localstore.NewMemoryStore(), nil
	}
	return localstore.NewFileStore(dir)
}

func newClient(c *cli.Context, cfg *config.ClientConfig) *client.StorefrontClient {
	return client.NewStorefrontClient(c.String("api-url"),
		config.ParseDuration("HTTP_TIMEOUT", cfg.HTTPTimeout, 10*time.Second))
}

func browseCatalog(cfg *config.ClientConfig) cli.ActionFunc {
	return func(c *cli.Context) error {
		store, err := openStore(c)
		if err != nil {
			return err
		}

		out := c.App.Writer
		follow := c.Bool("follow")
		mirrorConfig := catalogsync.MirrorConfig{
			WaitSeconds: config.ParseInt("EVENT_WAIT_SECONDS", cfg.EventWaitSeconds, catalogsync.DefaultWaitSeconds),
		}
		if follow {
			mirrorConfig.OnChange = func(change catalogsync.Change) {
				if change.Product == nil {
					fmt.Fprintf(out, "[%s] %s\n", change.EventType, change.ProductID)
					return
				}
				fmt.Fprintf(out, "[%s] %s: %.2f, stock %d, %d favorite(s)\n",
					change.EventType, change.Product.Name, change.Product.Price, change.Product.Stock, change.Product.Favorites)
			}
		}
		mirror := catalogsync.NewMirror(newClient(c, cfg), store, mirrorConfig)
		mirror.Load()

		if err := mirror.FullSync(c.Context); err != nil {
			if !follow && mirror.Status().ProductCount == 0 {
				return err
			}
			slog.Warn("Catalog sync failed, showing local copy", "error", err, "last_sync", mirror.Status().LastSyncTime)
		}
		if err := printCatalog(c, mirror.Products()); err != nil {
			return err
		}
		if !follow {
			return nil
		}

		fmt.Fprintln(out, "Following catalog changes, press Ctrl+C to stop")
		mirror.Run(c.Context)
		return nil
	}
}

func printCatalog(c *cli.Context, products []models.Product) error {
	if len(products) == 0 {
		fmt.Fprintln(c.App.Writer, "No products")
		return nil
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tFAVORITES")
	for _, p := range products {
		price := fmt.Sprintf("%.2f", p.Price)
		if p.OnSale() {
			price = fmt.Sprintf("%.2f (was %.2f)", p.Price, *p.OriginalPrice)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", p.ID, p.Name, p.Category, price, p.Stock, p.Favorites)
	}
	return w.Flush()
}

func watch(c *cli.Context, s *session) error {
	fmt.Fprintf(c.App.Writer, "Watching %d order(s) for %s, press Ctrl+C to stop\n", len(s.manager.Orders()), s.userID)
	if _, err := s.manager.SyncNow(c.Context); err != nil {
		slog.Warn("Initial sync failed", "error", err)
	}
	<-c.Context.Done()
	return nil
}

func listOrders(c *cli.Context, s *session) error {
	orders := s.manager.Orders()
	if len(orders) == 0 {
		fmt.Fprintln(c.App.Writer, "No orders")
		return nil
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tSIZE\tCOLOR\tSTATUS\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Product.Name, o.Size, o.Color, o.Status, o.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func checkout(c *cli.Context, s *session) error {
	product, err := s.api.GetProduct(c.Context, c.String("product"))
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) {
			return cli.Exit(fmt.Sprintf("product %s: %s", c.String("product"), strings.TrimSpace(statusErr.Body)), 1)
		}
		return err
	}

	order, err := s.manager.AddOrder(c.Context, ordersync.Checkout{
		Product: ordersync.ProductSnapshot{
			ID:            product.ID,
			Name:          product.Name,
			Price:         product.Price,
			OriginalPrice: product.OriginalPrice,
			Image:         product.Image,
			Category:      product.Category,
		},
		Size:      c.String("size"),
		Color:     c.String("color"),
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
		Address:   c.String("address"),
		Phone:     c.String("phone"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Order %s placed for %s (%.2f)\n", order.ID, order.Product.Name, order.Product.Price)
	return nil
}

func cancelOrder(c *cli.Context, s *session) error {
	orderID := c.Args().First()
	if orderID == "" {
		return cli.Exit("usage: storefront cancel <orderId>", 2)
	}
	if err := s.manager.CancelOrder(c.Context, orderID); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Order %s cancelled\n", orderID)
	return nil
}

func like(c *cli.Context, s *session) error {
	productID := c.Args().First()
	if productID == "" {
		return cli.Exit("usage: storefront like <productId>", 2)
	}
	liked, err := s.liked.Toggle(c.Context, s.userID, productID)
	if err != nil {
		return err
	}
	if liked {
		fmt.Fprintf(c.App.Writer, "Liked %s\n", productID)
	} else {
		fmt.Fprintf(c.App.Writer, "Unliked %s\n", productID)
	}
	return nil
}

func likes(c *cli.Context, s *session) error {
	ids := s.liked.List(s.userID)
	if len(ids) == 0 {
		fmt.Fprintln(c.App.Writer, "No liked products")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}
