package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"prism-connector/domain/model"
	"prism-connector/domain/repository"
)

// Mock implementations

type MockGraphClient struct {
	mock.Mock
}

func (m *MockGraphClient) ExchangeCode(ctx context.Context, code string) (*repository.TokenInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TokenInfo), args.Error(1)
}

func (m *MockGraphClient) ExtendToken(ctx context.Context, shortToken string) (*repository.TokenInfo, error) {
	args := m.Called(ctx, shortToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TokenInfo), args.Error(1)
}

func (m *MockGraphClient) RefreshToken(ctx context.Context, kind model.CredentialKind, accessToken string) (*repository.TokenInfo, error) {
	args := m.Called(ctx, kind, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TokenInfo), args.Error(1)
}

func (m *MockGraphClient) ResolveViaPages(ctx context.Context, accessToken string) (string, string, error) {
	args := m.Called(ctx, accessToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockGraphClient) ResolveViaMe(ctx context.Context, kind model.CredentialKind, accessToken string) (string, string, error) {
	args := m.Called(ctx, kind, accessToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockGraphClient) CreateMediaContainer(ctx context.Context, kind model.CredentialKind, accountID, imageURL, caption, accessToken string) (string, error) {
	args := m.Called(ctx, kind, accountID, imageURL, caption, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) ContainerStatus(ctx context.Context, kind model.CredentialKind, creationID, accessToken string) (string, error) {
	args := m.Called(ctx, kind, creationID, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) PublishContainer(ctx context.Context, kind model.CredentialKind, accountID, creationID, accessToken string) (string, error) {
	args := m.Called(ctx, kind, accountID, creationID, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) PostCommentReply(ctx context.Context, kind model.CredentialKind, commentID, message, accessToken string) error {
	args := m.Called(ctx, kind, commentID, message, accessToken)
	return args.Error(0)
}

type MockImageHost struct {
	mock.Mock
}

func (m *MockImageHost) EnsureJPEG(ctx context.Context, imageURL string) (string, error) {
	args := m.Called(ctx, imageURL)
	return args.String(0), args.Error(1)
}

type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) Publish(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockPublishUsecase struct {
	mock.Mock
}

func (m *MockPublishUsecase) Publish(ctx context.Context, personaID, imageURL, caption string) (string, error) {
	args := m.Called(ctx, personaID, imageURL, caption)
	return args.String(0), args.Error(1)
}

func (m *MockPublishUsecase) SendCommentReply(ctx context.Context, conn *model.Connection, commentID, message string) error {
	args := m.Called(ctx, conn, commentID, message)
	return args.Error(0)
}
