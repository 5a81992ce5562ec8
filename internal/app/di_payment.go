package app

import (
	"fmt"

	paymentRepository "github.com/allisson/fulfillment/internal/payment/repository"
	paymentService "github.com/allisson/fulfillment/internal/payment/service"
	paymentUsecase "github.com/allisson/fulfillment/internal/payment/usecase"
)

// PaymentRepository returns the payment repository instance.
func (c *Container) PaymentRepository() (paymentUsecase.PaymentRepository, error) {
	c.paymentRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["paymentRepo"] = fmt.Errorf("failed to get database for payment repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.paymentRepo = paymentRepository.NewMySQLPaymentRepository(db)
		case "postgres":
			c.paymentRepo = paymentRepository.NewPostgreSQLPaymentRepository(db)
		default:
			c.initErrors["paymentRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["paymentRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentRepo, nil
}

// Signer returns the webhook signature signer.
func (c *Container) Signer() *paymentService.Signer {
	c.signerInit.Do(func() {
		c.signer = paymentService.NewSigner(c.config.PaymentWebhookSecret)
	})
	return c.signer
}

// ProviderClient returns the payment provider HTTP client.
func (c *Container) ProviderClient() paymentService.ProviderClient {
	c.providerClientInit.Do(func() {
		c.providerClient = paymentService.NewHTTPProviderClient(
			c.config.PaymentProviderURL,
			c.config.PaymentProviderTimeout,
			c.Signer(),
		)
	})
	return c.providerClient
}

// PaymentUseCase returns the payment use case instance.
func (c *Container) PaymentUseCase() (paymentUsecase.UseCase, error) {
	c.paymentUseCaseInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["paymentUseCase"] = fmt.Errorf("failed to get tx manager for payment use case: %w", err)
			return
		}

		paymentRepo, err := c.PaymentRepository()
		if err != nil {
			c.initErrors["paymentUseCase"] = fmt.Errorf("failed to get payment repository for payment use case: %w", err)
			return
		}

		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["paymentUseCase"] = fmt.Errorf("failed to get outbox repository for payment use case: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["paymentUseCase"] = fmt.Errorf("failed to get business metrics for payment use case: %w", err)
			return
		}

		useCase := paymentUsecase.NewPaymentUseCase(
			paymentUsecase.Config{MaxAttempts: c.config.PaymentMaxAttempts},
			txManager,
			paymentRepo,
			outboxRepo,
			c.Signer(),
			c.ProviderClient(),
			c.Logger(),
		)

		c.paymentUseCase = paymentUsecase.NewUseCaseWithMetrics(useCase, businessMetrics)
	})
	if storedErr, exists := c.initErrors["paymentUseCase"]; exists {
		return nil, storedErr
	}
	return c.paymentUseCase, nil
}
