package settlement

import (
	"github.com/smallbiznis/partnerpay/internal/config"
	paypalrail "github.com/smallbiznis/partnerpay/internal/settlement/rails/paypal"
	striperail "github.com/smallbiznis/partnerpay/internal/settlement/rails/stripe"
	"github.com/smallbiznis/partnerpay/internal/settlement/service"
	stripe "github.com/stripe/stripe-go/v76"
	"go.uber.org/fx"
)

func newVerifier(cfg config.Config) *Verifier {
	return NewVerifier(cfg.SettlementWebhookSecret)
}

func newTransferCreator(cfg config.Config) striperail.TransferCreator {
	stripe.Key = cfg.StripeSecretKey
	return striperail.NewAPITransferCreator()
}

var Module = fx.Module("settlement",
	fx.Provide(
		newVerifier,
		newTransferCreator,
		striperail.NewRail,
		paypalrail.NewAPIPayoutClient,
		paypalrail.NewRail,
		service.NewService,
	),
)
