package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	defaultReadTimeout   = 8 * time.Second
	defaultOrderTimeout  = 15 * time.Second
	defaultKlineInterval = "5m"
)

// Client implements ports.ExchangeClient and ports.MarketDataSource using the
// go-binance spot API. Every call carries an explicit deadline so a hung
// request can never stall the polling loop.
type Client struct {
	spotClient    *binance.Client
	logger        ports.Logger
	readTimeout   time.Duration
	orderTimeout  time.Duration
	klineInterval string
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey        string
	SecretKey     string
	UseTestnet    bool
	Logger        ports.Logger
	ReadTimeout   time.Duration // market data and account reads
	OrderTimeout  time.Duration // order placement
	KlineInterval string        // candle interval backing GetPriceHistory, e.g. "5m"
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	orderTimeout := cfg.OrderTimeout
	if orderTimeout <= 0 {
		orderTimeout = defaultOrderTimeout
	}
	interval := cfg.KlineInterval
	if interval == "" {
		interval = defaultKlineInterval
	}

	return &Client{
		spotClient:    client,
		logger:        cfg.Logger,
		readTimeout:   readTimeout,
		orderTimeout:  orderTimeout,
		klineInterval: interval,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNotFound
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected (filters, insufficient balance)
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient") {
				mappedErr = ports.ErrInsufficientFunds
			} else {
				mappedErr = ports.ErrOrderPlacementFailed
			}
		case -2014, -2015: // API-key format invalid / bad key, IP or permissions
			mappedErr = ports.ErrInvalidAPIKeys
		case -3005: // Insufficient balance
			mappedErr = ports.ErrInsufficientFunds
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetTicker retrieves the current 24h statistics for a symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*ports.Ticker, error) {
	op := "GetTicker"
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	stats, err := c.spotClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(stats) == 0 {
		err := fmt.Errorf("no ticker data returned for symbol %s: %w", symbol, ports.ErrNotFound)
		return nil, c.handleError(ctx, err, op)
	}

	ticker, err := translateTicker(stats[0])
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return ticker, nil
}

// GetBalances retrieves all non-zero asset balances for the account.
func (c *Client) GetBalances(ctx context.Context) (map[string]ports.Balance, error) {
	op := "GetBalances"
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	account, err := c.spotClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	balances := make(map[string]ports.Balance)
	for _, bal := range account.Balances {
		free, err := strconv.ParseFloat(bal.Free, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse free balance '%s' for asset %s: %w", bal.Free, bal.Asset, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		locked, err := strconv.ParseFloat(bal.Locked, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse locked balance '%s' for asset %s: %w", bal.Locked, bal.Asset, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		if free == 0 && locked == 0 {
			continue
		}
		balances[bal.Asset] = ports.Balance{Asset: bal.Asset, Free: free, Locked: locked}
	}
	return balances, nil
}

// PlaceMarketOrder places a market order sized in the base asset.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResponse, error) {
	op := "PlaceMarketOrder"
	if quantity <= 0 {
		return nil, fmt.Errorf("%s failed: %w: quantity must be positive", op, ports.ErrInvalidRequest)
	}
	ctx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	defer cancel()

	order, err := c.spotClient.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64)).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := c.translateOrderResponse(ctx, order, side)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":    symbol,
		"side":      side,
		"quantity":  quantity,
		"orderID":   resp.OrderID,
		"fillPrice": resp.FillPrice,
		"status":    resp.Status,
	})
	return resp, nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetPriceHistory returns up to limit close prices for the symbol, oldest
// first, backed by the configured kline interval.
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, limit int) ([]float64, error) {
	op := "GetPriceHistory"
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	klines, err := c.spotClient.NewKlinesService().
		Symbol(symbol).
		Interval(c.klineInterval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	prices := make([]float64, 0, len(klines))
	for _, k := range klines {
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse close price '%s': %w", k.Close, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		prices = append(prices, closePrice)
	}
	return prices, nil
}

// --- Translation Helpers ---

func translateTicker(stats *binance.PriceChangeStats) (*ports.Ticker, error) {
	if stats == nil {
		return nil, errors.New("received nil price change stats")
	}
	lastPrice, err := strconv.ParseFloat(stats.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing last price '%s': %w", stats.LastPrice, err)
	}
	changePct, err := strconv.ParseFloat(stats.PriceChangePercent, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing price change percent '%s': %w", stats.PriceChangePercent, err)
	}
	volume, err := strconv.ParseFloat(stats.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", stats.Volume, err)
	}

	return &ports.Ticker{
		Symbol:       stats.Symbol,
		LastPrice:    lastPrice,
		ChangePct24h: changePct,
		Volume24h:    volume,
	}, nil
}

// translateOrderResponse maps the exchange order response onto the port
// type. Unparseable quantities are logged and reported as zero so callers
// can apply their own fallbacks.
func (c *Client) translateOrderResponse(ctx context.Context, order *binance.CreateOrderResponse, side domain.OrderSide) *ports.OrderResponse {
	if order == nil {
		return nil
	}
	execQty, err := strconv.ParseFloat(order.ExecutedQuantity, 64)
	if err != nil {
		c.logger.Warn(ctx, "Unparseable executed quantity in order response", map[string]interface{}{
			"orderID": order.OrderID,
			"symbol":  order.Symbol,
			"value":   order.ExecutedQuantity,
		})
	}
	quoteQty, err := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)
	if err != nil {
		c.logger.Warn(ctx, "Unparseable quote quantity in order response", map[string]interface{}{
			"orderID": order.OrderID,
			"symbol":  order.Symbol,
			"value":   order.CummulativeQuoteQuantity,
		})
	}

	// Market fills report no single price; derive the average from the
	// cumulative quote spend when possible.
	var fillPrice float64
	if execQty > 0 && quoteQty > 0 {
		fillPrice = quoteQty / execQty
	}

	return &ports.OrderResponse{
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        side,
		FillPrice:   fillPrice,
		ExecutedQty: execQty,
		Status:      string(order.Status),
		Timestamp:   time.UnixMilli(order.TransactTime),
	}
}
