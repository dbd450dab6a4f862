package service

import (
	"context"

	"foodbridge/internal/model"
	"foodbridge/internal/repository"
	"foodbridge/internal/service/donorapi"
)

// PaymentService initiates mpesa payments. Payments are never queued blind:
// a transaction row is stored only after the remote initiation succeeded,
// so there is no optimistic path here.
type PaymentService struct {
	transactions *repository.TransactionRepository
	client       *donorapi.Client
}

func NewPaymentService(transactions *repository.TransactionRepository, client *donorapi.Client) *PaymentService {
	return &PaymentService{transactions: transactions, client: client}
}

func (s *PaymentService) InitiatePayment(ctx context.Context, req donorapi.PaymentRequest) (model.MpesaTransaction, error) {
	tx, err := s.client.InitiatePayment(ctx, req)
	if err != nil {
		return model.MpesaTransaction{}, err
	}
	if err := s.transactions.Put(ctx, tx); err != nil {
		return model.MpesaTransaction{}, err
	}
	return tx, nil
}

func (s *PaymentService) GetTransactions(ctx context.Context, userID int64) ([]model.MpesaTransaction, error) {
	return s.transactions.ListByUser(ctx, userID)
}
