package cards

// Starter template IDs.
const (
	CardValidatorNode  = "validator-node"
	CardLiquidityPool  = "liquidity-pool"
	CardLeveragedVault = "leveraged-vault"
	CardMEVBot         = "mev-bot"
	CardWhale          = "whale"
	CardRugPull        = "rug-pull"
	CardExploit        = "exploit"
	CardAirdrop        = "airdrop"
)

// DefaultTemplates returns the starter card set.
func DefaultTemplates() []*Template {
	return []*Template{
		{ID: CardValidatorNode, Name: "Validator Node", Cost: 2, Category: CategoryPermanentResource,
			Abilities: []Ability{Income{Amount: 1}}},
		{ID: CardLiquidityPool, Name: "Liquidity Pool", Cost: 1, Category: CategoryYieldGenerator,
			Abilities: []Ability{Yield{Multiplier: 1}}},
		{ID: CardLeveragedVault, Name: "Leveraged Vault", Cost: 3, Category: CategoryYieldGenerator,
			Abilities: []Ability{Yield{Multiplier: 2}}},
		{ID: CardMEVBot, Name: "MEV Bot", Cost: 1, Category: CategoryUnit},
		{ID: CardWhale, Name: "Whale", Cost: 3, Category: CategoryUnit},
		{ID: CardRugPull, Name: "Rug Pull", Cost: 2, Category: CategoryOneShot,
			Abilities: []Ability{Destroy{Target: TargetOpponentUnit}}},
		{ID: CardExploit, Name: "Exploit", Cost: 3, Category: CategoryOneShot,
			Abilities: []Ability{Destroy{Target: TargetOpponentPermanent}}},
		{ID: CardAirdrop, Name: "Airdrop", Cost: 0, Category: CategoryOneShot},
	}
}

// DefaultDecks returns two mirrored 20 card starter decks.
func DefaultDecks() []*Deck {
	a := []string{
		CardLiquidityPool, CardValidatorNode, CardMEVBot, CardAirdrop, CardWhale,
		CardLiquidityPool, CardRugPull, CardValidatorNode, CardLeveragedVault, CardMEVBot,
		CardExploit, CardLiquidityPool, CardWhale, CardAirdrop, CardValidatorNode,
		CardRugPull, CardLeveragedVault, CardMEVBot, CardLiquidityPool, CardWhale,
	}
	b := []string{
		CardValidatorNode, CardLiquidityPool, CardMEVBot, CardWhale, CardAirdrop,
		CardRugPull, CardLiquidityPool, CardValidatorNode, CardMEVBot, CardLeveragedVault,
		CardWhale, CardExploit, CardLiquidityPool, CardAirdrop, CardValidatorNode,
		CardMEVBot, CardRugPull, CardLeveragedVault, CardWhale, CardLiquidityPool,
	}
	return []*Deck{
		{ID: "starter-a", Cards: a},
		{ID: "starter-b", Cards: b},
	}
}

// DefaultCatalog returns the starter catalog. It panics only if the built-in
// data is inconsistent.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTemplates(), DefaultDecks())
	if err != nil {
		panic("cards: invalid default catalog: " + err.Error())
	}
	return c
}
