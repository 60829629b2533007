package services

import (
	portsrepo "github.com/shopkosh/coin_wallet_service/internal/core/ports/repositories"
	portssvc "github.com/shopkosh/coin_wallet_service/internal/core/ports/services"
)

// NewServiceContainer wires the repository layer into the service container
// handed to the HTTP layer.
func NewServiceContainer(walletRepo portsrepo.WalletRepositoryFacade) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Wallet: NewWalletService(walletRepo),
	}
}
