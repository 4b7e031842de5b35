package bot

// Reply-keyboard button labels. Dispatch matches on the full label, so
// these strings are the protocol between the rendered menu and the
// handler switch.
const (
	btnConnectWallet   = "🔗 Connect Wallet"
	btnMonitorWallet   = "💰 Monitor Wallet"
	btnSend            = "💸 Send"
	btnSwap            = "🔄 Swap"
	btnChangeWallet    = "👛 Change Wallet"
	btnChooseWorkspace = "🗂 Choose Workspace"
	btnLogout          = "🚪 Logout"
	btnMainMenu        = "🏠 Main Menu"
)

// Callback-data namespaces.
const (
	cbAssetPrefix    = "asset_"
	cbSwapFromPrefix = "swap_from_"
	cbSwapToPrefix   = "swap_to_"
	cbSwapToCustom   = "swap_to_custom"
	cbWorkspace      = "ws_"
	cbWallet         = "wallet_"
	cbConfirmSend    = "confirm_send"
	cbCancelSend     = "cancel_send"
	cbConfirmSwap    = "confirm_swap"
	cbCancelSwap     = "cancel_swap"
	cbNewWallet      = "new_wallet"
	cbUseCurrent     = "use_current"
)

func mainMenuRows() [][]string {
	return [][]string{
		{btnMonitorWallet},
		{btnSend, btnSwap},
		{btnChangeWallet, btnChooseWorkspace},
		{btnLogout},
	}
}

func connectMenuRows() [][]string {
	return [][]string{{btnConnectWallet}}
}

var tokenEmojis = map[string]string{
	"SOL":  "🟣",
	"USDC": "💵",
	"USDT": "💚",
	"BTC":  "🟠",
	"ETH":  "🔷",
}

func tokenEmoji(symbol string) string {
	if e, ok := tokenEmojis[symbol]; ok {
		return e
	}
	return "🪙"
}
