package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"freshcart/internal/api"
	"freshcart/internal/cartsync"
	"freshcart/internal/config"
	"freshcart/internal/session"
	"freshcart/internal/storage"
	"freshcart/internal/util"
	"freshcart/pkg/domain"
)

const usage = `usage: freshcart <command> [options]

commands:
  register   create an account
  login      sign in and store the credential
  logout     drop the stored credential
  me         show or update the current identity
  passwd     change the account password
  forgot     reset a forgotten password (request code, verify, reset)
  products   browse the catalog
  product    show one product
  brands     list brands, or show one by ID
  categories list categories, or one category's subcategories by ID
  cart       show or mutate the cart (list|add|set|rm|clear)
  wishlist   show or mutate the wishlist (list|add|rm)
  checkout   place an order from the current cart
  orders     list past orders
  theme      get or set the UI theme preference
`

type cli struct {
	cfg     config.FileConfig
	storage storage.Store
	session *session.Store
	client  *api.Client
	sync    *cartsync.Store
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("FRESHCART_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	timeout, err := config.ParseHTTPTimeout(cfg.HTTPTimeout)
	if err != nil {
		log.Fatalf("failed to parse HTTP timeout: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	var store storage.Store
	if cfg.RedisAddr != "" {
		store = storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		fileStore, err := storage.NewFileStore(cfg.StateDir)
		if err != nil {
			log.Fatalf("failed to init state dir: %v", err)
		}
		store = fileStore
	}

	sess := session.New(store, logger)
	if err := sess.LoadFromStorage(); err != nil {
		log.Fatalf("failed to load session: %v", err)
	}
	client := api.NewClient(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: timeout,
		Tokens:  sess,
		OnUnauthorized: func() {
			if err := sess.Clear(); err != nil {
				logger.Warn("credential teardown failed", "err", err)
			}
		},
		Logger: logger,
	})

	app := &cli{
		cfg:     cfg,
		storage: store,
		session: sess,
		client:  client,
		sync:    cartsync.New(client, logger),
	}

	ctx := context.Background()
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "freshcart: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.register(ctx, args)
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout()
	case "me":
		return c.me(ctx, args)
	case "passwd":
		return c.passwd(ctx, args)
	case "forgot":
		return c.forgot(ctx, args)
	case "products":
		return c.products(ctx, args)
	case "product":
		return c.product(ctx, args)
	case "brands":
		return c.brands(ctx, args)
	case "categories":
		return c.categories(ctx, args)
	case "cart":
		return c.cart(ctx, args)
	case "wishlist":
		return c.wishlist(ctx, args)
	case "checkout":
		return c.checkout(ctx, args)
	case "orders":
		return c.orders(ctx)
	case "theme":
		return c.theme(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	phone := fs.String("phone", "", "phone number")
	_ = fs.Parse(args)

	user, token, err := c.client.SignUp(ctx, api.SignUpParams{
		Name:       *name,
		Email:      *email,
		Password:   *password,
		RePassword: *password,
		Phone:      *phone,
	})
	if err != nil {
		return err
	}
	if err := c.startSession(ctx, user, token); err != nil {
		return err
	}
	fmt.Printf("registered and logged in as %s\n", user.Email)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	user, token, err := c.client.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := c.startSession(ctx, user, token); err != nil {
		return err
	}
	cart := c.sync.Cart()
	_, wishCount := c.sync.Wishlist()
	fmt.Printf("logged in as %s (%d cart items, %d wishlist items)\n", user.Email, cart.ItemCount, wishCount)
	return nil
}

// startSession stores the credential, caches the profile, and runs the
// initial cart/wishlist load.
func (c *cli) startSession(ctx context.Context, user domain.User, token string) error {
	if err := c.session.SetCredential(token); err != nil {
		return err
	}
	if profile, err := json.Marshal(user); err == nil {
		_ = c.storage.Set(storage.KeyProfile, string(profile))
	}
	if err := c.sync.Load(ctx); err != nil {
		// Login itself succeeded; the next cart command re-fetches.
		fmt.Fprintf(os.Stderr, "warning: initial cart/wishlist load failed: %v\n", err)
	}
	return nil
}

func (c *cli) logout() error {
	if err := c.session.Clear(); err != nil {
		return err
	}
	c.sync.ClearLocalState()
	_ = c.storage.Delete(storage.KeyProfile)
	fmt.Println("logged out")
	return nil
}

func (c *cli) me(ctx context.Context, args []string) error {
	if !c.session.LoggedIn() {
		return fmt.Errorf("not logged in")
	}
	fs := flag.NewFlagSet("me", flag.ExitOnError)
	name := fs.String("name", "", "update full name")
	email := fs.String("email", "", "update email address")
	phone := fs.String("phone", "", "update phone number")
	_ = fs.Parse(args)

	if *name != "" || *email != "" || *phone != "" {
		user, err := c.client.UpdateMe(ctx, *name, *email, *phone)
		if err != nil {
			return err
		}
		if profile, err := json.Marshal(user); err == nil {
			_ = c.storage.Set(storage.KeyProfile, string(profile))
		}
		fmt.Printf("profile updated: %s <%s>\n", user.Name, user.Email)
		return nil
	}

	claims, ok := c.session.Claims()
	displayName, displayEmail := "No Name", "No Email"
	if ok {
		if claims.Name != "" {
			displayName = claims.Name
		}
		if claims.Email != "" {
			displayEmail = claims.Email
		}
	}
	if raw, found, err := c.storage.Get(storage.KeyProfile); err == nil && found {
		var user domain.User
		if json.Unmarshal([]byte(raw), &user) == nil {
			if user.Name != "" {
				displayName = user.Name
			}
			if user.Email != "" {
				displayEmail = user.Email
			}
		}
	}
	fmt.Printf("%s <%s>\n", displayName, displayEmail)
	if ok && !claims.ExpiresAt.IsZero() {
		fmt.Printf("credential expires %s\n", claims.ExpiresAt.Format("2006-01-02"))
	}
	return nil
}

func (c *cli) passwd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	_ = fs.Parse(args)

	token, err := c.client.ChangePassword(ctx, *current, *next)
	if err != nil {
		return err
	}
	if err := c.session.SetCredential(token); err != nil {
		return err
	}
	fmt.Println("password changed")
	return nil
}

// forgot walks the three-step reset flow: request a mailed code, verify it,
// then set the new password. Each step is its own invocation.
func (c *cli) forgot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "reset code from the email")
	next := fs.String("new", "", "new password")
	_ = fs.Parse(args)

	switch {
	case *code != "" && *next != "":
		if err := c.client.VerifyResetCode(ctx, *code); err != nil {
			return err
		}
		token, err := c.client.ResetPassword(ctx, *email, *next)
		if err != nil {
			return err
		}
		if err := c.session.SetCredential(token); err != nil {
			return err
		}
		fmt.Println("password reset, logged in")
		return nil
	case *code != "":
		if err := c.client.VerifyResetCode(ctx, *code); err != nil {
			return err
		}
		fmt.Println("code accepted; rerun with -code and -new to finish")
		return nil
	case *email != "":
		msg, err := c.client.ForgotPassword(ctx, *email)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	default:
		return fmt.Errorf("usage: freshcart forgot -email <addr> | -code <code> [-new <password> -email <addr>]")
	}
}

func (c *cli) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ExitOnError)
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 20, "page size")
	sort := fs.String("sort", "", "sort expression, e.g. -price")
	keyword := fs.String("keyword", "", "title search")
	category := fs.String("category", "", "category ID filter")
	brand := fs.String("brand", "", "brand ID filter")
	_ = fs.Parse(args)

	result, err := c.client.ListProducts(ctx, api.ProductQuery{
		Page:       *page,
		Limit:      *limit,
		Sort:       *sort,
		Keyword:    *keyword,
		CategoryID: *category,
		BrandID:    *brand,
	})
	if err != nil {
		return err
	}
	for _, p := range result.Items {
		fmt.Printf("%s  %-40.40s  %s\n", p.ID, p.Title, p.Price)
	}
	fmt.Printf("page %d of %d\n", result.Metadata.CurrentPage, result.Metadata.NumberOfPages)
	return nil
}

func (c *cli) product(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: freshcart product <id>")
	}
	p, err := c.client.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\nprice %s  stock %d  rating %.1f (%d)\n",
		p.Title, p.Description, p.Price, p.Quantity, p.RatingsAverage, p.RatingsQuantity)
	return nil
}

func (c *cli) brands(ctx context.Context, args []string) error {
	if len(args) > 0 {
		b, err := c.client.GetBrand(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", b.ID, b.Name)
		return nil
	}
	brands, err := c.client.ListBrands(ctx)
	if err != nil {
		return err
	}
	for _, b := range brands {
		fmt.Printf("%s  %s\n", b.ID, b.Name)
	}
	return nil
}

func (c *cli) categories(ctx context.Context, args []string) error {
	if len(args) > 0 {
		cat, err := c.client.GetCategory(ctx, args[0])
		if err != nil {
			return err
		}
		subs, err := c.client.ListSubcategories(ctx, cat.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", cat.ID, cat.Name)
		for _, sub := range subs {
			fmt.Printf("  %s  %s\n", sub.ID, sub.Name)
		}
		return nil
	}
	categories, err := c.client.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, cat := range categories {
		fmt.Printf("%s  %s\n", cat.ID, cat.Name)
	}
	return nil
}

func (c *cli) cart(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		if err := c.sync.FetchCart(ctx); err != nil {
			return err
		}
		printCart(c.sync.Cart())
		return nil
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: freshcart cart add <productID>")
		}
		if err := c.sync.FetchCart(ctx); err != nil {
			return err
		}
		cart, err := c.sync.AddToCart(ctx, args[1])
		if err != nil {
			return err
		}
		printCart(cart)
		return nil
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: freshcart cart set <productID> <count>")
		}
		count, err := strconv.Atoi(args[2])
		if err != nil || count < 1 {
			return fmt.Errorf("count must be a positive integer")
		}
		if err := c.sync.UpdateItemCount(ctx, args[1], count); err != nil {
			return err
		}
		printCart(c.sync.Cart())
		return nil
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("usage: freshcart cart rm <productID>")
		}
		if err := c.sync.RemoveItem(ctx, args[1]); err != nil {
			return err
		}
		printCart(c.sync.Cart())
		return nil
	case "clear":
		if err := c.sync.ClearCart(ctx); err != nil {
			return err
		}
		fmt.Println("cart cleared")
		return nil
	default:
		return fmt.Errorf("unknown cart subcommand %q", sub)
	}
}

func (c *cli) wishlist(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		items, err := c.sync.FetchWishlist(ctx)
		if err != nil {
			return err
		}
		for _, p := range items {
			fmt.Printf("%s  %-40.40s  %s\n", p.ID, p.Title, p.Price)
		}
		return nil
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: freshcart wishlist add <productID>")
		}
		if _, err := c.sync.FetchWishlist(ctx); err != nil {
			return err
		}
		items, err := c.sync.AddToWishlist(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("wishlist has %d items\n", len(items))
		return nil
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("usage: freshcart wishlist rm <productID>")
		}
		if err := c.sync.RemoveFromWishlist(ctx, args[1]); err != nil {
			return err
		}
		_, count := c.sync.Wishlist()
		fmt.Printf("wishlist has %d items\n", count)
		return nil
	default:
		return fmt.Errorf("unknown wishlist subcommand %q", sub)
	}
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	details := fs.String("details", "", "address details")
	phone := fs.String("phone", "", "contact phone")
	city := fs.String("city", "", "city")
	cash := fs.Bool("cash", false, "cash on delivery instead of card")
	_ = fs.Parse(args)

	if err := c.sync.FetchCart(ctx); err != nil {
		return err
	}
	cart := c.sync.Cart()
	if cart.ID == "" || cart.ItemCount == 0 {
		return fmt.Errorf("cart is empty")
	}
	addr := domain.ShippingAddress{Details: *details, Phone: *phone, City: *city}

	if *cash {
		order, err := c.client.CreateCashOrder(ctx, cart.ID, addr)
		if err != nil {
			return err
		}
		// The server consumed the cart; confirm with a fresh read.
		if err := c.sync.FetchCart(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cart refresh failed: %v\n", err)
		}
		fmt.Printf("order %s placed, total %s\n", order.ID, order.TotalOrderPrice)
		return nil
	}

	url, err := c.client.CheckoutSession(ctx, cart.ID, addr, c.cfg.CheckoutReturnURL)
	if err != nil {
		return err
	}
	fmt.Printf("complete payment at:\n%s\n", url)
	return nil
}

func (c *cli) orders(ctx context.Context) error {
	claims, ok := c.session.Claims()
	if !ok || claims.UserID == "" {
		return fmt.Errorf("not logged in")
	}
	orders, err := c.client.ListUserOrders(ctx, claims.UserID)
	if err != nil {
		return err
	}
	for _, o := range orders {
		status := "unpaid"
		if o.IsPaid {
			status = "paid"
		}
		fmt.Printf("%s  %s  %s  %s\n", o.ID, o.CreatedAt.Format("2006-01-02"), o.TotalOrderPrice, status)
	}
	return nil
}

func (c *cli) theme(args []string) error {
	if len(args) == 0 {
		theme, ok, err := c.storage.Get(storage.KeyTheme)
		if err != nil {
			return err
		}
		if !ok {
			theme = "light"
		}
		fmt.Println(theme)
		return nil
	}
	return c.storage.Set(storage.KeyTheme, args[0])
}

func printCart(cart domain.Cart) {
	for _, item := range cart.Items {
		fmt.Printf("%s  %-40.40s  x%d  %s\n", item.Product.ID, item.Product.Title, item.Count, item.Price)
	}
	fmt.Printf("%d items, total %s\n", cart.ItemCount, cart.TotalPrice)
}
