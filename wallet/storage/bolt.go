package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/crypto"
	bolt "go.etcd.io/bbolt"
)

const (
	walletBucket        = "wallet"
	keysetsBucket       = "keysets"
	proofsBucket        = "proofs"
	pendingProofsBucket = "pending_proofs"

	mnemonicKey = "mnemonic"
	seedKey     = "seed"
)

type BoltDB struct {
	bolt *bolt.DB
}

func InitBolt(path string) (*BoltDB, error) {
	db, err := bolt.Open(filepath.Join(path, "wallet.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("error setting bolt db: %v", err)
	}

	boltdb := &BoltDB{bolt: db}
	if err := boltdb.initWalletBuckets(); err != nil {
		return nil, fmt.Errorf("error setting bolt db: %v", err)
	}

	return boltdb, nil
}

func (db *BoltDB) initWalletBuckets() error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		buckets := []string{walletBucket, keysetsBucket, proofsBucket, pendingProofsBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}

func (db *BoltDB) SaveMnemonicSeed(mnemonic string, seed []byte) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		wallet := tx.Bucket([]byte(walletBucket))
		if err := wallet.Put([]byte(seedKey), seed); err != nil {
			return err
		}
		return wallet.Put([]byte(mnemonicKey), []byte(mnemonic))
	})
}

func (db *BoltDB) GetMnemonic() string {
	var mnemonic string
	db.bolt.View(func(tx *bolt.Tx) error {
		mnemonic = string(tx.Bucket([]byte(walletBucket)).Get([]byte(mnemonicKey)))
		return nil
	})
	return mnemonic
}

func (db *BoltDB) GetSeed() []byte {
	var seed []byte
	db.bolt.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(walletBucket)).Get([]byte(seedKey)); v != nil {
			seed = make([]byte, len(v))
			copy(seed, v)
		}
		return nil
	})
	return seed
}

// proofKey returns the key a proof is stored under: Y, the hash to
// curve point of its secret.
func proofKey(proof cashu.Proof) ([]byte, error) {
	Y, err := crypto.HashToCurve([]byte(proof.Secret))
	if err != nil {
		return nil, err
	}
	return Y.SerializeCompressed(), nil
}

func saveProofs(bucket *bolt.Bucket, proofs cashu.Proofs) error {
	for _, proof := range proofs {
		key, err := proofKey(proof)
		if err != nil {
			return err
		}
		jsonProof, err := json.Marshal(proof)
		if err != nil {
			return fmt.Errorf("invalid proof: %v", err)
		}
		if err := bucket.Put(key, jsonProof); err != nil {
			return err
		}
	}
	return nil
}

func readProofs(bucket *bolt.Bucket) cashu.Proofs {
	proofs := cashu.Proofs{}
	bucket.ForEach(func(k, v []byte) error {
		var proof cashu.Proof
		if err := json.Unmarshal(v, &proof); err != nil {
			return nil
		}
		proofs = append(proofs, proof)
		return nil
	})
	return proofs
}

func (db *BoltDB) SaveProofs(proofs cashu.Proofs) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		return saveProofs(tx.Bucket([]byte(proofsBucket)), proofs)
	})
}

func (db *BoltDB) GetProofs() cashu.Proofs {
	proofs := cashu.Proofs{}
	db.bolt.View(func(tx *bolt.Tx) error {
		proofs = readProofs(tx.Bucket([]byte(proofsBucket)))
		return nil
	})
	return proofs
}

func (db *BoltDB) GetProofsByKeysetId(id string) cashu.Proofs {
	proofs := cashu.Proofs{}
	db.bolt.View(func(tx *bolt.Tx) error {
		for _, proof := range readProofs(tx.Bucket([]byte(proofsBucket))) {
			if proof.Id == id {
				proofs = append(proofs, proof)
			}
		}
		return nil
	})
	return proofs
}

func (db *BoltDB) DeleteProof(Y string) error {
	YBytes, err := hex.DecodeString(Y)
	if err != nil {
		return fmt.Errorf("invalid Y: %v", err)
	}
	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(proofsBucket)).Delete(YBytes)
	})
}

// AddPendingProofs moves proofs into the pending bucket while a spend
// that uses them is in flight.
func (db *BoltDB) AddPendingProofs(proofs cashu.Proofs) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		pending := tx.Bucket([]byte(pendingProofsBucket))
		stored := tx.Bucket([]byte(proofsBucket))

		if err := saveProofs(pending, proofs); err != nil {
			return err
		}
		for _, proof := range proofs {
			key, err := proofKey(proof)
			if err != nil {
				return err
			}
			if err := stored.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltDB) GetPendingProofs() cashu.Proofs {
	proofs := cashu.Proofs{}
	db.bolt.View(func(tx *bolt.Tx) error {
		proofs = readProofs(tx.Bucket([]byte(pendingProofsBucket)))
		return nil
	})
	return proofs
}

func (db *BoltDB) DeletePendingProofs(Ys []string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		pending := tx.Bucket([]byte(pendingProofsBucket))
		for _, Y := range Ys {
			YBytes, err := hex.DecodeString(Y)
			if err != nil {
				return fmt.Errorf("invalid Y: %v", err)
			}
			if err := pending.Delete(YBytes); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltDB) SaveKeyset(keyset *crypto.WalletKeyset) error {
	jsonKeyset, err := json.Marshal(keyset)
	if err != nil {
		return fmt.Errorf("invalid keyset: %v", err)
	}

	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysetsBucket)).Put([]byte(keyset.Id), jsonKeyset)
	})
}

func (db *BoltDB) GetKeysets() map[string]crypto.WalletKeyset {
	keysets := make(map[string]crypto.WalletKeyset)
	db.bolt.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysetsBucket)).ForEach(func(k, v []byte) error {
			var keyset crypto.WalletKeyset
			if err := json.Unmarshal(v, &keyset); err != nil {
				return nil
			}
			keysets[keyset.Id] = keyset
			return nil
		})
	})
	return keysets
}

func (db *BoltDB) GetKeyset(id string) *crypto.WalletKeyset {
	var keyset *crypto.WalletKeyset
	db.bolt.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(keysetsBucket)).Get([]byte(id)); v != nil {
			var k crypto.WalletKeyset
			if err := json.Unmarshal(v, &k); err == nil {
				keyset = &k
			}
		}
		return nil
	})
	return keyset
}

// IncrementKeysetCounter advances the deterministic derivation
// counter stored for the keyset.
func (db *BoltDB) IncrementKeysetCounter(id string, num uint32) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		keysets := tx.Bucket([]byte(keysetsBucket))
		v := keysets.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("unknown keyset '%v'", id)
		}

		var keyset crypto.WalletKeyset
		if err := json.Unmarshal(v, &keyset); err != nil {
			return fmt.Errorf("invalid keyset: %v", err)
		}
		keyset.Counter += num

		jsonKeyset, err := json.Marshal(&keyset)
		if err != nil {
			return err
		}
		return keysets.Put([]byte(id), jsonKeyset)
	})
}

func (db *BoltDB) GetKeysetCounter(id string) uint32 {
	var counter uint32
	db.bolt.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(keysetsBucket)).Get([]byte(id)); v != nil {
			var keyset crypto.WalletKeyset
			if err := json.Unmarshal(v, &keyset); err == nil {
				counter = keyset.Counter
			}
		}
		return nil
	})
	return counter
}
