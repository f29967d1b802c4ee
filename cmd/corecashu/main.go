package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut10"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut11"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut13"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut14"
	"github.com/SparrowTek/CoreCashu-sub005/wallet"
	"github.com/SparrowTek/CoreCashu-sub005/wallet/storage"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/joho/godotenv"
	"github.com/tyler-smith/go-bip39"
	"github.com/urfave/cli/v2"
)

var db storage.DB

func walletPath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(homedir, ".corecashu", "wallet")
	if err := os.MkdirAll(path, 0700); err != nil {
		log.Fatal(err)
	}
	return path
}

func setupStorage(ctx *cli.Context) error {
	path := walletPath()

	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err != nil {
		wd, err := os.Getwd()
		if err == nil {
			envPath = filepath.Join(wd, ".env")
		}
	}
	godotenv.Load(envPath)

	var err error
	db, err = storage.InitBolt(path)
	if err != nil {
		printErr(err)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "corecashu",
		Usage: "offline cashu toolbox",
		Commands: []*cli.Command{
			mnemonicCmd,
			deriveCmd,
			decodeCmd,
			lockCmd,
			receiveKeyCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var mnemonicCmd = &cli.Command{
	Name:   "mnemonic",
	Usage:  "generate and store a new mnemonic, or print the stored one",
	Before: setupStorage,
	Action: mnemonic,
}

func mnemonic(ctx *cli.Context) error {
	if stored := db.GetMnemonic(); stored != "" {
		fmt.Println(stored)
		return nil
	}

	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		printErr(err)
	}
	newMnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		printErr(err)
	}
	seed := bip39.NewSeed(newMnemonic, "")
	if err := db.SaveMnemonicSeed(newMnemonic, seed); err != nil {
		printErr(err)
	}

	fmt.Println(newMnemonic)
	return nil
}

func masterKey() (*hdkeychain.ExtendedKey, error) {
	mnemonic := os.Getenv("MNEMONIC")
	if mnemonic == "" {
		mnemonic = db.GetMnemonic()
	}
	if mnemonic == "" {
		return nil, errors.New("no mnemonic found. Run 'corecashu mnemonic' first")
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	return hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
}

const countFlag = "count"

var deriveCmd = &cli.Command{
	Name:      "derive",
	Usage:     "show the deterministic secrets for a keyset",
	ArgsUsage: "<keyset-id> [start-counter]",
	Before:    setupStorage,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  countFlag,
			Usage: "number of counters to derive",
			Value: 1,
		},
	},
	Action: derive,
}

func derive(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("keyset id not provided"))
	}
	keysetId := args.First()

	var counter uint64
	if args.Len() > 1 {
		var err error
		counter, err = strconv.ParseUint(args.Get(1), 10, 32)
		if err != nil {
			printErr(errors.New("invalid counter"))
		}
	}

	master, err := masterKey()
	if err != nil {
		printErr(err)
	}
	keysetPath, err := nut13.DeriveKeysetPath(master, keysetId)
	if err != nil {
		printErr(err)
	}

	for i := 0; i < ctx.Int(countFlag); i++ {
		c := uint32(counter) + uint32(i)
		secret, r, err := nut13.Derive(keysetPath, c)
		if err != nil {
			printErr(err)
		}
		fmt.Printf("counter %v:\n  secret: %v\n  r: %v\n",
			c, secret, hex.EncodeToString(r.Serialize()))
	}
	return nil
}

var decodeCmd = &cli.Command{
	Name:      "decode",
	Usage:     "inspect a cashu token",
	ArgsUsage: "<token>",
	Action:    decode,
}

func decode(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("cashu token not provided"))
	}

	token, err := cashu.DecodeToken(args.First())
	if err != nil {
		printErr(err)
	}

	fmt.Printf("mint: %v\n", token.Mint())
	fmt.Printf("amount: %v sats\n", token.Amount())
	for _, proof := range token.Proofs() {
		kind := nut10.SecretType(proof)
		dleq := "no"
		if proof.DLEQ != nil {
			dleq = "yes"
		}
		fmt.Printf("  %v sat | keyset %v | secret kind %v | dleq %v\n",
			proof.Amount, proof.Id, kind, dleq)
	}
	return nil
}

const (
	pubkeyFlag   = "pubkey"
	hashFlag     = "hash"
	locktimeFlag = "locktime"
	refundFlag   = "refund"
	nsigsFlag    = "n-sigs"
)

var lockCmd = &cli.Command{
	Name:  "lock",
	Usage: "create a P2PK or HTLC locked secret",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  pubkeyFlag,
			Usage: "public key to lock to",
		},
		&cli.StringFlag{
			Name:  hashFlag,
			Usage: "sha256 hash for an HTLC lock",
		},
		&cli.Int64Flag{
			Name:  locktimeFlag,
			Usage: "unix timestamp after which the refund keys can spend",
		},
		&cli.StringFlag{
			Name:  refundFlag,
			Usage: "refund public key",
		},
		&cli.IntFlag{
			Name:  nsigsFlag,
			Usage: "number of required signatures",
		},
	},
	Action: lock,
}

func lock(ctx *cli.Context) error {
	tags := [][]string{}
	if ctx.IsSet(locktimeFlag) {
		tags = append(tags, []string{nut11.LOCKTIME, strconv.FormatInt(ctx.Int64(locktimeFlag), 10)})
	}
	if ctx.IsSet(refundFlag) {
		tags = append(tags, []string{nut11.REFUND, ctx.String(refundFlag)})
	}
	if ctx.IsSet(nsigsFlag) {
		tags = append(tags, []string{nut11.NSIGS, strconv.Itoa(ctx.Int(nsigsFlag))})
	}

	var secret string
	var err error
	switch {
	case ctx.IsSet(hashFlag):
		secret, err = nut14.HTLCSecret(ctx.String(hashFlag), tags)
	case ctx.IsSet(pubkeyFlag):
		condition := nut10.SpendingCondition{
			Kind: nut10.P2PK,
			Data: ctx.String(pubkeyFlag),
			Tags: tags,
		}
		secret, err = nut10.NewSecretFromSpendingCondition(condition)
	default:
		err = errors.New("specify either --pubkey or --hash")
	}
	if err != nil {
		printErr(err)
	}

	fmt.Println(secret)
	return nil
}

var receiveKeyCmd = &cli.Command{
	Name:   "receive-key",
	Usage:  "show the public key for receiving locked ecash",
	Before: setupStorage,
	Action: receiveKey,
}

func receiveKey(ctx *cli.Context) error {
	master, err := masterKey()
	if err != nil {
		printErr(err)
	}

	key, err := wallet.DeriveP2PK(master)
	if err != nil {
		printErr(err)
	}

	fmt.Println(hex.EncodeToString(key.PubKey().SerializeCompressed()))
	return nil
}

func printErr(msg error) {
	fmt.Println(msg.Error())
	os.Exit(0)
}
