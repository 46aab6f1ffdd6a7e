package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/iliyamo/online-cinema/internal/middleware"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/repository"
)

// PaymentHandler serves the /payments endpoints: order checkout, Stripe
// session creation, the payment webhook and the purchased library.
type PaymentHandler struct {
	Orders *repository.OrderRepo
	Movies *repository.MovieRepo

	// BaseURL is the public origin embedded in success/cancel redirects.
	BaseURL       string
	WebhookSecret string
}

func NewPaymentHandler(orders *repository.OrderRepo, movies *repository.MovieRepo, baseURL, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{Orders: orders, Movies: movies, BaseURL: baseURL, WebhookSecret: webhookSecret}
}

type orderItemResp struct {
	ID           uint64 `json:"id"`
	MovieID      uint64 `json:"movie_id"`
	MovieName    string `json:"movie_name"`
	PriceAtOrder string `json:"price_at_order"`
}

type orderResp struct {
	ID          uint64          `json:"id"`
	Status      string          `json:"status"`
	TotalAmount string          `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []orderItemResp `json:"items"`
}

func toOrderResp(o *model.Order) orderResp {
	items := make([]orderItemResp, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResp{
			ID: it.ID, MovieID: it.MovieID, MovieName: it.MovieName, PriceAtOrder: it.PriceAtOrder,
		})
	}
	return orderResp{ID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount, CreatedAt: o.CreatedAt, Items: items}
}

// priceToCents converts a DECIMAL(10,2) string to cents without going
// through a float.
func priceToCents(price string) (int64, error) {
	whole, frac, _ := strings.Cut(price, ".")
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", price, err)
	}
	cents := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		if cents, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("parse price %q: %w", price, err)
		}
	}
	return dollars*100 + cents, nil
}

// Checkout opens a pending order for a single movie. A movie the caller
// already owns cannot be ordered again.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	movieID, err := strconv.ParseUint(c.Param("movie_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	user := middleware.Principal(c)

	owned, err := h.Orders.HasPaidMovie(c.Request().Context(), user.ID, movieID)
	if err != nil {
		c.Logger().Errorf("payments: ownership check %d/%d: %v", user.ID, movieID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	if owned {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "You have a movie."})
	}

	movie, err := h.Movies.GetByID(c.Request().Context(), movieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Movie not found"})
	}
	if err != nil {
		c.Logger().Errorf("payments: movie lookup %d: %v", movieID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	orderID, err := h.Orders.CreateOrder(c.Request().Context(), user.ID, movieID, movie.Price)
	if err != nil {
		c.Logger().Errorf("payments: create order %d/%d: %v", user.ID, movieID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	order, err := h.Orders.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		c.Logger().Errorf("payments: load order %d: %v", orderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusCreated, toOrderResp(order))
}

// Pay creates a Stripe checkout session for a pending order owned by the
// caller and returns its URL.
func (h *PaymentHandler) Pay(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid order id."})
	}
	user := middleware.Principal(c)

	order, err := h.Orders.GetOrder(c.Request().Context(), orderID)
	if errors.Is(err, repository.ErrOrderNotFound) || (err == nil && order.UserID != user.ID) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Order not found"})
	}
	if err != nil {
		c.Logger().Errorf("payments: load order %d: %v", orderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	if order.Status == model.OrderPaid {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Order already paid"})
	}

	cents, err := priceToCents(order.TotalAmount)
	if err != nil {
		c.Logger().Errorf("payments: order %d amount: %v", orderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String("usd"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Order #%d", order.ID)),
				},
				UnitAmount: stripe.Int64(cents),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(h.BaseURL + "/payments/success/?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(h.BaseURL + "/payments/cancel/"),
	}
	params.AddMetadata("order_id", strconv.FormatUint(order.ID, 10))

	sess, err := session.New(params)
	if err != nil {
		c.Logger().Errorf("payments: stripe session for order %d: %v", orderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusOK, echo.Map{"checkout_url": sess.URL})
}

// Webhook receives Stripe events. On a completed checkout session, the
// referenced order becomes paid and a payment row is recorded; replays of
// the same event are no-ops.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid payload."})
	}

	event, err := webhook.ConstructEvent(payload, c.Request().Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid signature."})
	}

	if event.Type == "checkout.session.completed" {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid event payload."})
		}
		if raw, ok := sess.Metadata["order_id"]; ok {
			orderID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid order reference."})
			}
			if err := h.Orders.MarkPaid(c.Request().Context(), orderID, sess.ID); err != nil &&
				!errors.Is(err, repository.ErrOrderNotFound) {
				c.Logger().Errorf("payments: mark order %d paid: %v", orderID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

// Success is the landing endpoint of a completed Stripe redirect.
func (h *PaymentHandler) Success(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Payment is successful.",
		"session_id": c.QueryParam("session_id"),
	})
}

// Cancel is the landing endpoint of an aborted Stripe redirect.
func (h *PaymentHandler) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Payment is not successful."})
}

// ListOrders serves the caller's orders, newest first.
func (h *PaymentHandler) ListOrders(c echo.Context) error {
	page, perPage := pageParams(c)
	user := middleware.Principal(c)
	orders, total, err := h.Orders.ListOrders(c.Request().Context(), user.ID, page, perPage)
	if err != nil {
		c.Logger().Errorf("payments: list orders %d: %v", user.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	if total == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "No orders found."})
	}
	items := make([]orderResp, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResp(&orders[i]))
	}
	return c.JSON(http.StatusOK, paginate(items, "/payments/orders/", page, perPage, total))
}

// Library serves the movies the caller has paid for, with catalog filters.
func (h *PaymentHandler) Library(c echo.Context) error {
	f := movieFilter(c)
	user := middleware.Principal(c)
	movies, total, err := h.Movies.ListLibrary(c.Request().Context(), user.ID, f)
	if err != nil {
		c.Logger().Errorf("payments: library %d: %v", user.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return renderMovieList(c, "/payments/me/library/", movies, total, f, "Library is empty or no movies found")
}
