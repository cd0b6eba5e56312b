package session

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"token-payment-api/internal/chain"
	"token-payment-api/internal/mocks"
	"token-payment-api/internal/model"
	"token-payment-api/internal/token"
)

const zeroText = "Acquire DHLT to start paying"

var (
	userAddr         = common.HexToAddress("0x000000000000000000000000000000000000abc1")
	otherAddr        = common.HexToAddress("0x000000000000000000000000000000000000abc2")
	defaultRecipient = common.HexToAddress("0xB5F112bb88E8f7A58c97c32763c4CEc90f74B83b")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type ServiceTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	reader   *mocks.MockBalanceReader
	transfer *mocks.MockTransferer
	signers  *mocks.MockSignerProvider
	decoder  *mocks.MockReasonDecoder
	ledger   *mocks.MockPaymentRecorder
	svc      *Service
	id       string
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.reader = mocks.NewMockBalanceReader(s.ctrl)
	s.transfer = mocks.NewMockTransferer(s.ctrl)
	s.signers = mocks.NewMockSignerProvider(s.ctrl)
	s.decoder = mocks.NewMockReasonDecoder(s.ctrl)
	s.ledger = mocks.NewMockPaymentRecorder(s.ctrl)

	fetcher := token.NewFetcher(s.reader, token.FetcherConfig{
		Decimals: token.DefaultDecimals,
		ZeroText: zeroText,
		Timeout:  5 * time.Second,
	})
	s.svc = NewService(Config{
		ChainID:  56,
		Decimals: token.DefaultDecimals,
		Amounts:  []string{"1", "5000", "50000"},
	}, Deps{
		Sessions: NewManager(defaultRecipient, time.Hour),
		Fetcher:  fetcher,
		Transfer: s.transfer,
		Signers:  s.signers,
		Decoder:  s.decoder,
		Ledger:   s.ledger,
		Logger:   zap.NewNop(),
	})
	s.id = s.svc.Open().ID
}

func (s *ServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceTestSuite) connect(addr common.Address, raw *big.Int) State {
	s.reader.EXPECT().BalanceOf(gomock.Any(), addr).Return(raw, nil)
	st, err := s.svc.ChangeAccount(context.Background(), s.id, WalletState{Address: &addr, ChainID: 56})
	s.Require().NoError(err)
	return st
}

func (s *ServiceTestSuite) TestBalanceDisplayForConnectedAddress() {
	raw, _ := new(big.Int).SetString("2500000000000000000", 10)
	st := s.connect(userAddr, raw)

	s.Equal("2.50000000", st.Balance)
	s.Equal(BalanceReady, st.Status)
	s.Equal(userAddr, *st.Address)
}

func (s *ServiceTestSuite) TestDisconnectResetsBalance() {
	s.connect(userAddr, ether(3))

	st, err := s.svc.ChangeAccount(context.Background(), s.id, WalletState{})
	s.Require().NoError(err)
	s.Equal("", st.Balance)
	s.Equal(BalanceEmpty, st.Status)
	s.Nil(st.Address)
}

func (s *ServiceTestSuite) TestZeroBalanceShowsPlaceholder() {
	st := s.connect(userAddr, big.NewInt(0))

	s.Equal(zeroText, st.Balance)
	s.Equal(BalanceZero, st.Status)
}

func (s *ServiceTestSuite) TestFetchFailureIsUnavailable() {
	s.reader.EXPECT().BalanceOf(gomock.Any(), userAddr).Return(nil, errors.New("dial tcp: connection refused"))

	st, err := s.svc.ChangeAccount(context.Background(), s.id, WalletState{Address: &userAddr, ChainID: 56})
	s.Require().NoError(err)
	s.Equal(BalanceUnavailable, st.Status)
	s.Equal("", st.Balance)
}

func (s *ServiceTestSuite) TestWrongNetworkSkipsFetch() {
	st, err := s.svc.ChangeAccount(context.Background(), s.id, WalletState{Address: &userAddr, ChainID: 1})
	s.Require().NoError(err)
	s.Equal(BalanceWrongNetwork, st.Status)
}

func (s *ServiceTestSuite) TestOlderFetchDoesNotOverwriteNewer() {
	started := make(chan context.Context, 1)
	release := make(chan struct{})
	done := make(chan State, 1)

	s.reader.EXPECT().BalanceOf(gomock.Any(), userAddr).DoAndReturn(
		func(ctx context.Context, _ common.Address) (*big.Int, error) {
			started <- ctx
			<-release
			return ether(1), nil
		})
	s.reader.EXPECT().BalanceOf(gomock.Any(), otherAddr).Return(ether(2), nil)

	go func() {
		st, _ := s.svc.ChangeAccount(context.Background(), s.id, WalletState{Address: &userAddr, ChainID: 56})
		done <- st
	}()
	olderCtx := <-started

	newer, err := s.svc.ChangeAccount(context.Background(), s.id, WalletState{Address: &otherAddr, ChainID: 56})
	s.Require().NoError(err)
	s.Equal("2.00000000", newer.Balance)
	s.ErrorIs(olderCtx.Err(), context.Canceled)

	close(release)
	<-done

	final, err := s.svc.Get(s.id)
	s.Require().NoError(err)
	s.Equal(otherAddr, *final.Address)
	s.Equal("2.00000000", final.Balance)
	s.Equal(BalanceReady, final.Status)
}

func (s *ServiceTestSuite) TestPayScalesEveryTier() {
	s.connect(userAddr, ether(100000))
	opts := &bind.TransactOpts{From: userAddr}

	for i, amount := range []string{"1", "5000", "50000"} {
		literal, _ := new(big.Int).SetString(amount, 10)
		want := new(big.Int).Mul(literal, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
		tx := types.NewTx(&types.LegacyTx{Nonce: uint64(i)})

		s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil)
		s.transfer.EXPECT().Transfer(opts, defaultRecipient, gomock.Any()).DoAndReturn(
			func(_ *bind.TransactOpts, _ common.Address, got *big.Int) (*types.Transaction, error) {
				s.Zero(want.Cmp(got), "amount %s", amount)
				return tx, nil
			})
		s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).Return(nil)

		st, err := s.svc.Pay(context.Background(), s.id, amount)
		s.Require().NoError(err)
		s.True(st.Notification.Success)
	}
}

func (s *ServiceTestSuite) TestPaySuccess() {
	s.connect(userAddr, ether(10000))
	opts := &bind.TransactOpts{From: userAddr}
	tx := types.NewTx(&types.LegacyTx{Nonce: 7, Gas: 60000})

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil)
	s.transfer.EXPECT().Transfer(opts, defaultRecipient, ether(5000)).Return(tx, nil)
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *model.Payment) error {
			s.Equal(model.PaymentSubmitted, p.Status)
			s.Equal(tx.Hash().Hex(), p.TxHash)
			s.Equal("5000", p.Amount)
			s.Equal(ether(5000).String(), p.BaseUnits)
			s.Equal(userAddr.Hex(), p.From)
			s.Equal(defaultRecipient.Hex(), p.To)
			s.Equal(s.id, p.SessionID)
			return nil
		})

	st, err := s.svc.Pay(context.Background(), s.id, "5000")
	s.Require().NoError(err)
	s.True(st.Notification.Success)
	s.True(st.Notification.Open)
	s.Equal("", st.Notification.Message)
	s.Equal(tx.Hash().Hex(), st.Notification.TxHash)
}

func (s *ServiceTestSuite) TestPayRejectedByUser() {
	s.connect(userAddr, ether(10000))
	opts := &bind.TransactOpts{From: userAddr}

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil)
	s.transfer.EXPECT().Transfer(opts, defaultRecipient, ether(5000)).
		Return(nil, &chain.RejectedError{Reason: "request denied"})
	s.decoder.EXPECT().Reason(gomock.Any()).Return("decoded reason").AnyTimes()
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *model.Payment) error {
			s.Equal(model.PaymentRejected, p.Status)
			return nil
		})

	st, err := s.svc.Pay(context.Background(), s.id, "5000")
	s.Require().NoError(err)
	s.False(st.Notification.Success)
	s.Equal(MsgRejected, st.Notification.Message)
	s.Equal("Transaction rejected by user", st.Notification.Message)
}

func (s *ServiceTestSuite) TestPaySuccessAfterUndismissedRejection() {
	s.connect(userAddr, ether(10000))
	opts := &bind.TransactOpts{From: userAddr}
	tx := types.NewTx(&types.LegacyTx{Nonce: 9})

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil).Times(2)
	gomock.InOrder(
		s.transfer.EXPECT().Transfer(opts, defaultRecipient, ether(5000)).
			Return(nil, &chain.RejectedError{Reason: "request denied"}),
		s.transfer.EXPECT().Transfer(opts, defaultRecipient, ether(5000)).Return(tx, nil),
	)
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	st, err := s.svc.Pay(context.Background(), s.id, "5000")
	s.Require().NoError(err)
	s.Equal(MsgRejected, st.Notification.Message)

	st, err = s.svc.Pay(context.Background(), s.id, "5000")
	s.Require().NoError(err)
	s.True(st.Notification.Open)
	s.True(st.Notification.Success)
	s.Equal("", st.Notification.Message)
	s.Equal(tx.Hash().Hex(), st.Notification.TxHash)
}

func (s *ServiceTestSuite) TestPayFailureUsesDecodedReason() {
	s.connect(userAddr, ether(10000))
	opts := &bind.TransactOpts{From: userAddr}
	sendErr := errors.New("execution reverted")

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil)
	s.transfer.EXPECT().Transfer(opts, defaultRecipient, ether(1)).Return(nil, sendErr)
	s.decoder.EXPECT().Reason(sendErr).Return("ERC20InsufficientBalance")
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).Return(nil)

	st, err := s.svc.Pay(context.Background(), s.id, "1")
	s.Require().NoError(err)
	s.False(st.Notification.Success)
	s.True(st.Notification.Open)
	s.Equal("ERC20InsufficientBalance", st.Notification.Message)
}

func (s *ServiceTestSuite) TestPaySignerFailure() {
	s.connect(userAddr, ether(10000))
	signErr := errors.New("account locked")

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(nil, signErr)
	s.decoder.EXPECT().Reason(signErr).Return("account locked")
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).Return(nil)

	st, err := s.svc.Pay(context.Background(), s.id, "1")
	s.Require().NoError(err)
	s.Equal("account locked", st.Notification.Message)
}

func (s *ServiceTestSuite) TestLedgerFailureKeepsOutcome() {
	s.connect(userAddr, ether(10000))
	opts := &bind.TransactOpts{From: userAddr}
	tx := types.NewTx(&types.LegacyTx{Nonce: 1})

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil)
	s.transfer.EXPECT().Transfer(opts, defaultRecipient, ether(1)).Return(tx, nil)
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	st, err := s.svc.Pay(context.Background(), s.id, "1")
	s.Require().NoError(err)
	s.True(st.Notification.Success)
}

func (s *ServiceTestSuite) TestPayRequiresConnection() {
	st, err := s.svc.Pay(context.Background(), s.id, "5000")
	s.Require().NoError(err)
	s.Equal(MsgNotConnected, st.Notification.Message)
}

func (s *ServiceTestSuite) TestPayRejectsUnknownAmount() {
	s.connect(userAddr, ether(1))

	st, err := s.svc.Pay(context.Background(), s.id, "42")
	s.Require().NoError(err)
	s.Equal("Unsupported payment amount: 42", st.Notification.Message)
}

func (s *ServiceTestSuite) TestRecipientChangeIsUsedForPayment() {
	s.connect(userAddr, ether(10))
	opts := &bind.TransactOpts{From: userAddr}
	tx := types.NewTx(&types.LegacyTx{Nonce: 2})

	st, err := s.svc.SetRecipient(s.id, otherAddr.Hex())
	s.Require().NoError(err)
	s.Equal(otherAddr, st.Recipient)

	st, err = s.svc.SetRecipient(s.id, "0x1234")
	s.Require().NoError(err)
	s.Equal(otherAddr, st.Recipient)
	s.Equal("Invalid recipient address: 0x1234", st.Notification.Message)

	s.signers.EXPECT().Signer(gomock.Any(), userAddr).Return(opts, nil)
	s.transfer.EXPECT().Transfer(opts, otherAddr, ether(1)).Return(tx, nil)
	s.ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any()).Return(nil)

	_, err = s.svc.Pay(context.Background(), s.id, "1")
	s.Require().NoError(err)
}

func (s *ServiceTestSuite) TestNotificationClearedByDismissAndRefresh() {
	st, err := s.svc.Pay(context.Background(), s.id, "1")
	s.Require().NoError(err)
	s.True(st.Notification.Open)

	st, err = s.svc.Dismiss(s.id)
	s.Require().NoError(err)
	s.Equal(Notification{}, st.Notification)

	_, err = s.svc.Pay(context.Background(), s.id, "1")
	s.Require().NoError(err)
	st = s.connect(userAddr, ether(1))
	s.Equal(Notification{}, st.Notification)
}

func (s *ServiceTestSuite) TestUnknownSession() {
	_, err := s.svc.ChangeAccount(context.Background(), "00000000-0000-0000-0000-000000000000", WalletState{})
	s.ErrorIs(err, ErrSessionNotFound)
	_, err = s.svc.Pay(context.Background(), "bogus", "1")
	s.ErrorIs(err, ErrSessionNotFound)
	_, err = s.svc.Dismiss("bogus")
	s.ErrorIs(err, ErrSessionNotFound)
	_, err = s.svc.SetRecipient("bogus", otherAddr.Hex())
	s.ErrorIs(err, ErrSessionNotFound)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestServiceWithoutLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockBalanceReader(ctrl)
	transfer := mocks.NewMockTransferer(ctrl)
	signers := mocks.NewMockSignerProvider(ctrl)

	svc := NewService(Config{ChainID: 56, Decimals: 18, Amounts: []string{"1"}}, Deps{
		Sessions: NewManager(defaultRecipient, 0),
		Fetcher:  token.NewFetcher(reader, token.FetcherConfig{Decimals: 18}),
		Transfer: transfer,
		Signers:  signers,
		Decoder:  chain.NewDecoder(mustABI(t)),
	})
	id := svc.Open().ID

	reader.EXPECT().BalanceOf(gomock.Any(), userAddr).Return(ether(1), nil)
	_, err := svc.ChangeAccount(context.Background(), id, WalletState{Address: &userAddr})
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{})
	signers.EXPECT().Signer(gomock.Any(), userAddr).Return(&bind.TransactOpts{}, nil)
	transfer.EXPECT().Transfer(gomock.Any(), defaultRecipient, ether(1)).Return(tx, nil)

	st, err := svc.Pay(context.Background(), id, "1")
	require.NoError(t, err)
	assert.True(t, st.Notification.Success)
	assert.Equal(t, []string{"1"}, svc.Amounts())
}

func mustABI(t *testing.T) abi.ABI {
	parsed, err := token.ParsedABI()
	require.NoError(t, err)
	return parsed
}
